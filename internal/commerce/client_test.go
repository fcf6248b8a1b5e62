package commerce

import (
	"context"
	"datapack/internal/config"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.CommerceConfig{
		BaseURL:    server.URL,
		Token:      "token-123",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.CommerceConfig{})
	require.Error(t, err)

	_, err = NewClient(config.CommerceConfig{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	tests := map[string]string{
		"/rest/V1/store/websites": "/rest/V1/store/websites",
		"/store/storeGroups":      "/rest/V1/store/storeGroups",
		"categories":              "/rest/V1/categories",
	}
	for in, want := range tests {
		if got := resolvePath(in); got != want {
			t.Fatalf("resolvePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWebsites_SetsHeaders(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		_, _ = w.Write([]byte(`[{"id":0,"code":"admin","name":"Admin"},{"id":1,"code":"base","name":"Main Website","default_group_id":1}]`))
	})

	sites, err := client.Websites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "base", sites[1].Code)
	assert.Equal(t, 1, sites[1].DefaultGroupID)

	require.NotNil(t, captured)
	assert.Equal(t, "/rest/V1/store/websites", captured.URL.Path)
	assert.Equal(t, "Bearer token-123", captured.Header.Get("Authorization"))
	assert.Equal(t, client.RequestID(), captured.Header.Get("X-Request-ID"))
	assert.Equal(t, "application/json", captured.Header.Get("Accept"))
}

func TestWebsites_NotAnArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"unexpected"}`))
	})

	_, err := client.Websites(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotArray))
	assert.Contains(t, err.Error(), "not an array")
}

func TestGet_HTMLResponseIsNotJSONError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!doctype html><html><body>Login</body></html>`))
	})

	_, err := client.Get(context.Background(), WebsitesPath, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.True(t, apiErr.NotJSON)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
}

func TestGet_StatusErrorRendersPlatformMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"No such entity with %fieldName = %fieldValue","parameters":{"fieldName":"code","fieldValue":"buildright"}}`))
	})

	_, err := client.Get(context.Background(), StoreGroupsPath, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, apiErr.NotJSON)
	assert.Equal(t, "No such entity with code = buildright", apiErr.Message)
	assert.Equal(t, "/rest/V1/store/storeGroups", apiErr.Path)
}

func TestRenderMessage_Positional(t *testing.T) {
	got := renderMessage("%1 requires %2", json.RawMessage(`["store view","a website"]`))
	assert.Equal(t, "store view requires a website", got)
}

func TestCreateStoreView_PostsWrappedBody(t *testing.T) {
	var body map[string]StoreView
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/V1/store/storeViews", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		_, _ = w.Write([]byte(`{"id":42,"code":"br_en","name":"English","website_id":3,"store_group_id":7,"is_active":1}`))
	})

	view, err := client.CreateStoreView(context.Background(), StoreView{
		Code: "br_en", Name: "English", WebsiteID: 3, StoreGroupID: 7, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 42, view.ID)
	assert.True(t, view.IsActive)
	assert.Equal(t, "br_en", body["store"].Code)
	assert.True(t, body["store"].IsActive)
}

func TestCreateStoreGroup_IDOnlyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"17"`))
	})

	group, err := client.CreateStoreGroup(context.Background(), StoreGroup{Code: "br", Name: "BuildRight", WebsiteID: 3, RootCategoryID: 2})
	require.NoError(t, err)
	assert.Equal(t, 17, group.ID)
	assert.Equal(t, "br", group.Code)
}

func TestFindCategoryByName_SearchQueryAndTree(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("searchCriteria[filterGroups][0][filters][0][value]")
		_, _ = w.Write([]byte(`{"id":1,"name":"Root Catalog","children_data":[
			{"id":2,"parent_id":1,"name":"Default Category"},
			{"id":9,"parent_id":1,"name":"BuildRight Root","children_data":[{"id":10,"parent_id":9,"name":"Lumber"}]}
		]}`))
	})

	cat, err := client.FindCategoryByName(context.Background(), "BuildRight Root")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, 9, cat.ID)
	assert.Nil(t, cat.ChildrenData)
	assert.Equal(t, "BuildRight Root", query)

	missing, err := client.FindCategoryByName(context.Background(), "Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseCategories_SearchItems(t *testing.T) {
	cats, err := ParseCategories([]byte(`{"items":[{"id":5,"name":"A"}],"total_count":1}`))
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, 5, cats[0].ID)
}

func TestStoreView_UnmarshalIsActive(t *testing.T) {
	var views []StoreView
	require.NoError(t, json.Unmarshal([]byte(`[{"code":"a","is_active":1},{"code":"b","is_active":0},{"code":"c","is_active":true}]`), &views))
	assert.True(t, views[0].IsActive)
	assert.False(t, views[1].IsActive)
	assert.True(t, views[2].IsActive)
	assert.Equal(t, "b", views[1].Code)
}

func TestRenderMessage_NamedLongestKeyFirst(t *testing.T) {
	got := renderMessage("%field is %fieldName", json.RawMessage(`{"field":"code","fieldName":"buildright"}`))
	assert.Equal(t, "code is buildright", got)
}

func TestSnippet_KeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", 199) + "é" + strings.Repeat("b", 50)

	got := snippet([]byte(body))
	assert.True(t, utf8.ValidString(got), "snippet split a rune: %q", got)
	assert.Equal(t, strings.Repeat("a", 199)+"...", got)

	short := "ошибка"
	assert.Equal(t, short, snippet([]byte(short)))
}
