package ownership

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
)

// Load reads an owner-to-identity mapping. The format follows the file
// extension: .json, .yaml/.yml or .toml. Each file holds a flat table of
// database owner to tracker identity.
func Load(path string) (reconcile.OwnershipMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "read ownership file %s", path)
	}

	entries := map[string]string{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, &entries)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &entries)
	case ".toml":
		err = toml.Unmarshal(raw, &entries)
	default:
		return nil, fmt.Errorf("unsupported ownership file extension %q", ext)
	}
	if err != nil {
		return nil, errs.Wrapf(err, "parse ownership file %s", path)
	}

	out := make(reconcile.OwnershipMap, len(entries))
	for owner, identity := range entries {
		owner = strings.TrimSpace(owner)
		if owner == "" {
			continue
		}
		out[owner] = strings.TrimSpace(identity)
	}
	return out, nil
}

// Resolve merges the file mapping (if any) under the inline entries from
// config. Inline entries win.
//
// Config keys arrive lowercased, so an inline key that equals a file key
// only when case is ignored does not override it; that pair is logged.
func Resolve(ctx context.Context, path string, inline map[string]string) (reconcile.OwnershipMap, error) {
	base := reconcile.OwnershipMap{}
	if strings.TrimSpace(path) != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		base = loaded
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.ownership"))
	for _, pair := range caseOnlyCollisions(base, inline) {
		logging.Warn(logCtx, "inline owner differs from file owner only by case",
			slog.String("inline", pair[0]),
			slog.String("file", pair[1]),
		)
	}
	return base.Merge(reconcile.OwnershipMap(inline)), nil
}

// caseOnlyCollisions returns sorted (inline, file) key pairs that differ
// only by letter case.
func caseOnlyCollisions(file reconcile.OwnershipMap, inline map[string]string) [][2]string {
	var out [][2]string
	for ik := range inline {
		ik = strings.TrimSpace(ik)
		for fk := range file {
			if ik != fk && strings.EqualFold(ik, fk) {
				out = append(out, [2]string{ik, fk})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
