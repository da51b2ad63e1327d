package zotero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/openheritage/taglens/pkg/taglens/internalerr"
	"github.com/openheritage/taglens/pkg/taglens/record"
)

func apiItem(key, title, itemType string, tags []string, children int) map[string]interface{} {
	tagObjs := make([]map[string]string, len(tags))
	for i, t := range tags {
		tagObjs[i] = map[string]string{"tag": t}
	}
	return map[string]interface{}{
		"key": key,
		"data": map[string]interface{}{
			"title":    title,
			"itemType": itemType,
			"tags":     tagObjs,
		},
		"meta": map[string]interface{}{"numChildren": children},
	}
}

func TestListRecordsPaginates(t *testing.T) {
	// Three items at page size two: two pages plus an empty terminator.
	items := []map[string]interface{}{
		apiItem("A1", "Shale miners at Ruined Castle", "newspaperArticle", []string{"Mining", "Katoomba"}, 2),
		apiItem("A2", "Mine accident inquest", "newspaperArticle", []string{"Mining"}, 1),
		apiItem("A3", "", "note", nil, 0),
	}

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		if r.Header.Get("Zotero-API-Version") != "3" {
			t.Error("missing Zotero-API-Version header")
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing Authorization header")
		}

		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := start + limit
		if end > len(items) {
			end = len(items)
		}
		page := []map[string]interface{}{}
		if start < len(items) {
			page = items[start:end]
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := NewClient(Options{
		LibraryID:   "2258643",
		LibraryType: "group",
		APIKey:      "test-key",
		PageSize:    2,
		BaseURL:     srv.URL,
	})

	records, err := client.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Pagination stops only on an empty page, so the short second page is
	// followed by one more request.
	if len(requests) != 3 {
		t.Errorf("got %d requests, want 3", len(requests))
	}

	if records[0].ID != "A1" || len(records[0].Tags) != 2 || records[0].ChildCount != 2 {
		t.Errorf("record A1 decoded wrong: %+v", records[0])
	}
	if records[2].Title != record.NoTitle {
		t.Errorf("missing title should default to %q, got %q", record.NoTitle, records[2].Title)
	}
}

func TestListRecordsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(Options{LibraryID: "1", LibraryType: "group", BaseURL: srv.URL})

	_, err := client.ListRecords(context.Background())
	if !errors.Is(err, internalerr.ErrNotAuthorized) {
		t.Errorf("want ErrNotAuthorized, got %v", err)
	}
}

func TestFetchChildren(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/1/items/K1/children" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[
			{"key":"C1","data":{"itemType":"attachment","filename":"page1.pdf","contentType":"application/pdf"}},
			{"key":"C2","data":{"itemType":"note","note":"<p>transcribed text</p>"}}
		]`)
	}))
	defer srv.Close()

	client := NewClient(Options{LibraryID: "1", LibraryType: "group", BaseURL: srv.URL})

	children, err := client.FetchChildren(context.Background(), "K1")
	if err != nil {
		t.Fatalf("FetchChildren failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	if !children[0].IsPDF() {
		t.Error("C1 should be a PDF")
	}
	if !children[1].IsNote() || children[1].Note == "" {
		t.Error("C2 should be a note with text")
	}
}

func TestFetchChildrenNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Options{LibraryID: "1", LibraryType: "group", BaseURL: srv.URL})

	_, err := client.FetchChildren(context.Background(), "MISSING")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestUserLibraryPrefix(t *testing.T) {
	client := NewClient(Options{LibraryID: "42", LibraryType: "user"})
	if got := client.libraryPrefix(); got != "/users/42" {
		t.Errorf("libraryPrefix = %q, want /users/42", got)
	}
}
