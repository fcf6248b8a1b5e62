package stores

import (
	"datapack/internal/datapack"
	"encoding/json"
	"fmt"
	"strings"
)

// StoreConfig describes one website -> store group -> store view triple from the datapack.
type StoreConfig struct {
	SiteCode          string `json:"site_code"`
	SiteName          string `json:"site_name"`
	StoreCode         string `json:"store_code"`
	StoreName         string `json:"store_name"`
	StoreRootCategory string `json:"store_root_category"`
	StoreViewCode     string `json:"store_view_code"`
	ViewName          string `json:"view_name"`
	ViewIsActive      string `json:"view_is_active"`
}

// Active maps the datapack's "Y" sentinel to a bool; anything else is inactive.
func (s StoreConfig) Active() bool {
	return strings.TrimSpace(s.ViewIsActive) == "Y"
}

// Identity is site/store/view, unique within a datapack.
func (s StoreConfig) Identity() string {
	return s.SiteCode + "/" + s.StoreCode + "/" + s.StoreViewCode
}

// LoadStoreConfigs reads the datapack's store configuration array.
func LoadStoreConfigs(path string) ([]StoreConfig, error) {
	items, err := datapack.ReadRawArray(path)
	if err != nil {
		return nil, err
	}
	configs := make([]StoreConfig, 0, len(items))
	for i, item := range items {
		var c StoreConfig
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("parse %s: store config %d: %w", path, i, err)
		}
		configs = append(configs, c)
	}
	return configs, nil
}
