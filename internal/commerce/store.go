package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	WebsitesPath    = "/rest/V1/store/websites"
	StoreGroupsPath = "/store/storeGroups"
	StoreViewsPath  = "/store/storeViews"
	CategoriesPath  = "/categories"
)

type Website struct {
	ID             int    `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	DefaultGroupID int    `json:"default_group_id,omitempty"`
}

type StoreGroup struct {
	ID             int    `json:"id,omitempty"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	WebsiteID      int    `json:"website_id"`
	RootCategoryID int    `json:"root_category_id"`
	DefaultStoreID int    `json:"default_store_id,omitempty"`
}

type StoreView struct {
	ID           int    `json:"id,omitempty"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	WebsiteID    int    `json:"website_id"`
	StoreGroupID int    `json:"store_group_id"`
	IsActive     bool   `json:"is_active"`
}

// UnmarshalJSON accepts is_active as a bool or as the 0/1 integer the platform returns.
func (v *StoreView) UnmarshalJSON(data []byte) error {
	type alias StoreView
	var raw struct {
		alias
		IsActive json.RawMessage `json:"is_active"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = StoreView(raw.alias)
	switch strings.TrimSpace(string(raw.IsActive)) {
	case "true", "1", `"1"`:
		v.IsActive = true
	default:
		v.IsActive = false
	}
	return nil
}

type Category struct {
	ID           int        `json:"id,omitempty"`
	ParentID     int        `json:"parent_id"`
	Name         string     `json:"name"`
	IsActive     bool       `json:"is_active"`
	Level        int        `json:"level,omitempty"`
	ChildrenData []Category `json:"children_data,omitempty"`
}

func (c *Client) Websites(ctx context.Context) ([]Website, error) {
	raw, err := c.Get(ctx, WebsitesPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Website]("websites", raw)
}

func (c *Client) StoreGroups(ctx context.Context) ([]StoreGroup, error) {
	raw, err := c.Get(ctx, StoreGroupsPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[StoreGroup]("store groups", raw)
}

func (c *Client) StoreViews(ctx context.Context) ([]StoreView, error) {
	raw, err := c.Get(ctx, StoreViewsPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[StoreView]("store views", raw)
}

func (c *Client) CreateStoreGroup(ctx context.Context, group StoreGroup) (StoreGroup, error) {
	raw, err := c.Post(ctx, StoreGroupsPath, map[string]any{"group": group})
	if err != nil {
		return StoreGroup{}, err
	}
	created := group
	id, err := decodeCreated(raw, &created)
	if err != nil {
		return StoreGroup{}, fmt.Errorf("decode created store group: %w", err)
	}
	if id != 0 {
		created.ID = id
	}
	return created, nil
}

func (c *Client) CreateStoreView(ctx context.Context, view StoreView) (StoreView, error) {
	raw, err := c.Post(ctx, StoreViewsPath, map[string]any{"store": view})
	if err != nil {
		return StoreView{}, err
	}
	created := view
	id, err := decodeCreated(raw, &created)
	if err != nil {
		return StoreView{}, fmt.Errorf("decode created store view: %w", err)
	}
	if id != 0 {
		created.ID = id
	}
	return created, nil
}

// CategorySearch builds the search criteria for an exact name match.
func CategorySearch(name string) url.Values {
	q := url.Values{}
	q.Set("searchCriteria[filterGroups][0][filters][0][field]", "name")
	q.Set("searchCriteria[filterGroups][0][filters][0][value]", name)
	q.Set("searchCriteria[filterGroups][0][filters][0][condition_type]", "eq")
	return q
}

// FindCategoryByName returns the first category named exactly name, or nil.
func (c *Client) FindCategoryByName(ctx context.Context, name string) (*Category, error) {
	raw, err := c.Get(ctx, CategoriesPath, CategorySearch(name))
	if err != nil {
		return nil, err
	}
	categories, err := ParseCategories(raw)
	if err != nil {
		return nil, fmt.Errorf("parse categories response: %w", err)
	}
	for i := range categories {
		if categories[i].Name == name {
			return &categories[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateCategory(ctx context.Context, category Category) (Category, error) {
	raw, err := c.Post(ctx, CategoriesPath, map[string]any{"category": category})
	if err != nil {
		return Category{}, err
	}
	created := category
	id, err := decodeCreated(raw, &created)
	if err != nil {
		return Category{}, fmt.Errorf("decode created category: %w", err)
	}
	if id != 0 {
		created.ID = id
	}
	return created, nil
}

// ParseCategories flattens the shapes the categories endpoint may return: a search
// result with items, a bare array, or a category tree with children_data.
func ParseCategories(data []byte) ([]Category, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Category
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("unmarshal category list: %w", err)
		}
		return flatten(list), nil
	}

	var search struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &search); err == nil && len(search.Items) > 0 {
		var items []Category
		if err := json.Unmarshal(search.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal category items: %w", err)
		}
		return flatten(items), nil
	}

	var root Category
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, fmt.Errorf("unmarshal category tree: %w", err)
	}
	return flatten([]Category{root}), nil
}

func flatten(categories []Category) []Category {
	var out []Category
	for _, c := range categories {
		children := c.ChildrenData
		c.ChildrenData = nil
		out = append(out, c)
		out = append(out, flatten(children)...)
	}
	return out
}

// decodeCreated handles create endpoints that answer with either the entity or its id.
func decodeCreated(raw json.RawMessage, into any) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return 0, json.Unmarshal(trimmed, into)
	}
	var id int
	if err := json.Unmarshal(trimmed, &id); err == nil {
		return id, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if _, err := fmt.Sscanf(s, "%d", &id); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unexpected create response: %s", snippet(trimmed))
}
