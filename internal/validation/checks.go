package validation

import (
	"datapack/internal/datapack"
	"errors"
	"fmt"
)

// Check is the outcome of one checklist item.
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// FileExists passes when path is present on disk.
func FileExists(path, name string) Check {
	ok, err := datapack.Exists(path)
	if err != nil {
		return Check{
			Name:    name + " file exists",
			Passed:  false,
			Message: fmt.Sprintf("could not stat %s: %v", path, err),
		}
	}
	if !ok {
		return Check{
			Name:    name + " file exists",
			Passed:  false,
			Message: fmt.Sprintf("%s not found", path),
		}
	}
	return Check{
		Name:    name + " file exists",
		Passed:  true,
		Message: fmt.Sprintf("found %s", path),
	}
}

// ValidJSONArray passes when path parses as a top-level JSON array. The element count
// is returned alongside the check and recorded in Data.
func ValidJSONArray(path, name string) (Check, int) {
	items, err := datapack.ReadRawArray(path)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, datapack.ErrNotArray) {
			msg = fmt.Sprintf("%s is valid JSON but not an array", path)
		}
		return Check{
			Name:    name + " valid JSON array",
			Passed:  false,
			Message: msg,
		}, 0
	}
	return Check{
		Name:    name + " valid JSON array",
		Passed:  true,
		Message: fmt.Sprintf("%s contains %d records", path, len(items)),
		Data:    map[string]int{"count": len(items)},
	}, len(items)
}

// EntityCountInRange passes iff min <= count <= max.
func EntityCountInRange(count, min, max int, name string) Check {
	c := Check{
		Name: name + " count in range",
		Data: map[string]int{"count": count, "min": min, "max": max},
	}
	if count < min || count > max {
		c.Message = fmt.Sprintf("%d %s outside expected range [%d, %d]", count, name, min, max)
		return c
	}
	c.Passed = true
	c.Message = fmt.Sprintf("%d %s within expected range [%d, %d]", count, name, min, max)
	return c
}
