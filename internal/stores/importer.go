// Package stores creates the website/store group/store view hierarchy described by a
// datapack on the commerce platform.
package stores

import (
	"context"
	"datapack/internal/commerce"
	"datapack/internal/results"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/samber/lo"
)

// DefaultRootCategoryID is used for new store groups when the configured root category
// cannot be resolved.
const DefaultRootCategoryID = 1

// ErrManualSetupRequired means a website is missing. The REST API cannot create websites,
// so the run stops until an operator adds it.
var ErrManualSetupRequired = errors.New("not found - manual setup required")

const skippedReason = "store management endpoint unavailable; platform assumed already configured"

// API is the slice of the commerce client the importer needs.
type API interface {
	Websites(ctx context.Context) ([]commerce.Website, error)
	StoreGroups(ctx context.Context) ([]commerce.StoreGroup, error)
	StoreViews(ctx context.Context) ([]commerce.StoreView, error)
	CreateStoreGroup(ctx context.Context, group commerce.StoreGroup) (commerce.StoreGroup, error)
	CreateStoreView(ctx context.Context, view commerce.StoreView) (commerce.StoreView, error)
	FindCategoryByName(ctx context.Context, name string) (*commerce.Category, error)
	CreateCategory(ctx context.Context, category commerce.Category) (commerce.Category, error)
}

type Importer struct {
	api     API
	results *results.Results
	log     *slog.Logger
	// Out receives the manual setup instructions.
	Out io.Writer
	// DryRun logs the POSTs it would make instead of sending them.
	DryRun bool

	websiteIDs []int
	storeIDs   []int
}

func NewImporter(api API, res *results.Results, logger *slog.Logger) *Importer {
	if res == nil {
		res = results.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		api:     api,
		results: res,
		log:     logger,
		Out:     os.Stdout,
	}
}

// ImportFile loads the store configs at path and imports them.
func (im *Importer) ImportFile(ctx context.Context, path string) (results.Summary, error) {
	configs, err := LoadStoreConfigs(path)
	if err != nil {
		return im.summary(), err
	}
	im.log.InfoContext(ctx, "loaded store configs", "path", path, "count", len(configs))
	return im.Import(ctx, configs)
}

// Import runs every record through website -> store group -> store view. A missing
// website aborts the run; any other failure is recorded against its record only.
func (im *Importer) Import(ctx context.Context, configs []StoreConfig) (results.Summary, error) {
	if len(configs) == 0 {
		im.log.WarnContext(ctx, "no store configs to import")
		return im.summary(), nil
	}

	websites, err := im.api.Websites(ctx)
	if err != nil {
		if endpointUnavailable(err) {
			im.log.WarnContext(ctx, "store management endpoint unavailable, skipping store import", "error", err)
			for _, c := range configs {
				im.results.AddSkipped(c.Identity(), skippedReason)
			}
			return im.summary(), nil
		}
		return im.summary(), fmt.Errorf("probe websites: %w", err)
	}

	byCode := lo.KeyBy(websites, func(w commerce.Website) string { return w.Code })

	// Only the first record's site is checked; a datapack carries a single site today.
	if site, ok := byCode[configs[0].SiteCode]; ok {
		im.log.InfoContext(ctx, "website already configured, nothing to import", "site_code", site.Code, "website_id", site.ID)
		im.websiteIDs = append(im.websiteIDs, site.ID)
		for _, c := range configs {
			im.results.AddExisting(c.Identity())
		}
		return im.summary(), nil
	}

	for _, c := range configs {
		if err := im.importOne(ctx, c, byCode); err != nil {
			if errors.Is(err, ErrManualSetupRequired) {
				return im.summary(), err
			}
			im.log.ErrorContext(ctx, "store import failed", "store", c.Identity(), "error", err)
			im.results.AddFailed()
		}
	}

	return im.summary(), nil
}

func (im *Importer) importOne(ctx context.Context, c StoreConfig, websites map[string]commerce.Website) error {
	websiteID, err := im.EnsureWebsite(ctx, c, websites)
	if err != nil {
		return err
	}
	groupID, groupCreated, err := im.EnsureStoreGroup(ctx, c, websiteID)
	if err != nil {
		return err
	}
	viewID, viewCreated, err := im.EnsureStoreView(ctx, c, websiteID, groupID)
	if err != nil {
		return err
	}

	im.websiteIDs = append(im.websiteIDs, websiteID)
	if viewID != 0 {
		im.storeIDs = append(im.storeIDs, viewID)
	}

	if groupCreated || viewCreated {
		im.log.InfoContext(ctx, "store imported", "store", c.Identity(), "store_group_id", groupID, "store_view_id", viewID)
		im.results.AddCreated()
	} else {
		im.log.InfoContext(ctx, "store already present", "store", c.Identity())
		im.results.AddExisting(c.Identity())
	}
	return nil
}

// EnsureWebsite returns the id of the record's website. Websites cannot be created over
// REST: when it is missing the root category is prepared, instructions are printed and
// ErrManualSetupRequired is returned.
func (im *Importer) EnsureWebsite(ctx context.Context, c StoreConfig, websites map[string]commerce.Website) (int, error) {
	if site, ok := websites[c.SiteCode]; ok {
		im.log.DebugContext(ctx, "website exists", "site_code", c.SiteCode, "website_id", site.ID)
		return site.ID, nil
	}

	rootID := im.ensureRootCategory(ctx, c)
	im.printManualInstructions(c, rootID)
	return 0, fmt.Errorf("website %q %w", c.SiteCode, ErrManualSetupRequired)
}

// EnsureStoreGroup returns the store group id, creating the group if needed.
func (im *Importer) EnsureStoreGroup(ctx context.Context, c StoreConfig, websiteID int) (int, bool, error) {
	groups, err := im.api.StoreGroups(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("store group %q: list store groups: %w", c.StoreCode, err)
	}
	if g, ok := lo.Find(groups, func(g commerce.StoreGroup) bool { return g.Code == c.StoreCode }); ok {
		return g.ID, false, nil
	}

	group := commerce.StoreGroup{
		Code:           c.StoreCode,
		Name:           c.StoreName,
		WebsiteID:      websiteID,
		RootCategoryID: im.resolveRootCategoryID(ctx, c),
	}
	if im.DryRun {
		im.log.InfoContext(ctx, "would create store group", "code", group.Code, "website_id", websiteID, "root_category_id", group.RootCategoryID)
		return 0, true, nil
	}

	created, err := im.api.CreateStoreGroup(ctx, group)
	if err != nil {
		return 0, false, fmt.Errorf("store group %q: create: %w", c.StoreCode, err)
	}
	im.log.InfoContext(ctx, "created store group", "code", created.Code, "id", created.ID)
	return created.ID, true, nil
}

// EnsureStoreView returns the store view id, creating the view if needed.
func (im *Importer) EnsureStoreView(ctx context.Context, c StoreConfig, websiteID, groupID int) (int, bool, error) {
	views, err := im.api.StoreViews(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("store view %q: list store views: %w", c.StoreViewCode, err)
	}
	if v, ok := lo.Find(views, func(v commerce.StoreView) bool { return v.Code == c.StoreViewCode }); ok {
		return v.ID, false, nil
	}

	view := commerce.StoreView{
		Code:         c.StoreViewCode,
		Name:         c.ViewName,
		WebsiteID:    websiteID,
		StoreGroupID: groupID,
		IsActive:     c.Active(),
	}
	if im.DryRun {
		im.log.InfoContext(ctx, "would create store view", "code", view.Code, "store_group_id", groupID, "active", view.IsActive)
		return 0, true, nil
	}

	created, err := im.api.CreateStoreView(ctx, view)
	if err != nil {
		return 0, false, fmt.Errorf("store view %q: create: %w", c.StoreViewCode, err)
	}
	im.log.InfoContext(ctx, "created store view", "code", created.Code, "id", created.ID)
	return created.ID, true, nil
}

// ensureRootCategory finds or creates the record's root category. Best effort: failures
// are logged and yield nil.
func (im *Importer) ensureRootCategory(ctx context.Context, c StoreConfig) *int {
	name := strings.TrimSpace(c.StoreRootCategory)
	if name == "" {
		return nil
	}

	existing, err := im.api.FindCategoryByName(ctx, name)
	if err != nil {
		im.log.WarnContext(ctx, "root category lookup failed", "category", name, "error", err)
		return nil
	}
	if existing != nil {
		return &existing.ID
	}

	if im.DryRun {
		im.log.InfoContext(ctx, "would create root category", "category", name)
		return nil
	}
	created, err := im.api.CreateCategory(ctx, commerce.Category{
		ParentID: DefaultRootCategoryID,
		Name:     name,
		IsActive: true,
	})
	if err != nil {
		im.log.WarnContext(ctx, "root category creation failed", "category", name, "error", err)
		return nil
	}
	im.log.InfoContext(ctx, "created root category", "category", name, "id", created.ID)
	return &created.ID
}

// resolveRootCategoryID falls back to DefaultRootCategoryID when the category is unset,
// missing or the lookup fails.
func (im *Importer) resolveRootCategoryID(ctx context.Context, c StoreConfig) int {
	name := strings.TrimSpace(c.StoreRootCategory)
	if name == "" {
		return DefaultRootCategoryID
	}
	cat, err := im.api.FindCategoryByName(ctx, name)
	if err != nil {
		im.log.WarnContext(ctx, "root category lookup failed, using default", "category", name, "default_id", DefaultRootCategoryID, "error", err)
		return DefaultRootCategoryID
	}
	if cat == nil {
		im.log.WarnContext(ctx, "root category not found, using default", "category", name, "default_id", DefaultRootCategoryID)
		return DefaultRootCategoryID
	}
	return cat.ID
}

func (im *Importer) printManualInstructions(c StoreConfig, rootCategoryID *int) {
	root := "(create it first: Catalog > Categories)"
	if rootCategoryID != nil {
		root = fmt.Sprintf("%s (id %d)", c.StoreRootCategory, *rootCategoryID)
	} else if c.StoreRootCategory == "" {
		root = "Default Category"
	}

	w := im.Out
	_, _ = fmt.Fprintf(w, "\nManual setup required: website %q does not exist.\n", c.SiteCode)
	_, _ = fmt.Fprintln(w, "The REST API cannot create websites. In the admin panel go to Stores > All Stores and:")
	_, _ = fmt.Fprintf(w, "  1. Create Website: code=%s name=%q\n", c.SiteCode, c.SiteName)
	_, _ = fmt.Fprintf(w, "  2. Create Store:   code=%s name=%q root category=%s\n", c.StoreCode, c.StoreName, root)
	_, _ = fmt.Fprintf(w, "  3. Create Store View: code=%s name=%q active=%t\n", c.StoreViewCode, c.ViewName, c.Active())
	_, _ = fmt.Fprintln(w, "Then re-run the store import.")
}

func (im *Importer) summary() results.Summary {
	s := im.results.Summary()
	s.WebsiteIDs = lo.Uniq(im.websiteIDs)
	s.StoreIDs = lo.Uniq(im.storeIDs)
	if im.DryRun {
		s.Notes = append(s.Notes, "dry run: no entities were created")
	}
	return s
}

// endpointUnavailable reports whether a websites probe failed because store
// administration is not reachable, as opposed to a genuine error.
func endpointUnavailable(err error) bool {
	if errors.Is(err, commerce.ErrNotArray) {
		return true
	}
	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) && (apiErr.NotJSON || apiErr.StatusCode == http.StatusNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "not an array")
}
