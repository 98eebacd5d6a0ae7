package registry

import (
	"fmt"

	"go.uber.org/zap"

	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/pkg/types"
)

// dedupe drops exact re-insertions of a key and rejects a key that appears
// with two different records. The first occurrence wins.
func dedupe(recs []types.TypeRecord, logger *zap.Logger) ([]types.TypeRecord, error) {
	seen := make(map[types.Key]types.TypeRecord, len(recs))
	out := make([]types.TypeRecord, 0, len(recs))
	for _, r := range recs {
		k := r.Key()
		prev, ok := seen[k]
		if !ok {
			seen[k] = r
			out = append(out, r)
			continue
		}
		if prev != r {
			return nil, rerrors.NewLoadError(rerrors.CodeDuplicateKey,
				fmt.Sprintf("key %s defined twice with different records (%s, %s)", k, prev.Name, r.Name)).
				WithDetails(map[string]interface{}{"key": k.String()})
		}
		logger.Debug("ignoring repeated type record", zap.String("key", k.String()))
	}
	return out, nil
}

// checkConsistency enforces that within one backend and version ids and
// names map one-to-one, and that within one version every backend agrees on
// what an id names.
func checkConsistency(recs []types.TypeRecord) error {
	names := make(map[tableKey]map[string]int)
	perVersion := make(map[types.Version]map[int]types.TypeRecord)

	for _, r := range recs {
		tk := tableKey{r.Backend, r.Version}
		byName, ok := names[tk]
		if !ok {
			byName = make(map[string]int)
			names[tk] = byName
		}
		if id, dup := byName[r.Name]; dup && id != r.ID {
			return inconsistent(fmt.Sprintf("%s names both id %d and id %d in %s", r.Name, id, r.ID, tk), r)
		}
		byName[r.Name] = r.ID

		ids, ok := perVersion[r.Version]
		if !ok {
			ids = make(map[int]types.TypeRecord)
			perVersion[r.Version] = ids
		}
		if other, dup := ids[r.ID]; dup && other.Name != r.Name {
			return inconsistent(fmt.Sprintf("id %d is %s on %s but %s on %s at %s",
				r.ID, other.Name, other.Backend, r.Name, r.Backend, r.Version), r)
		} else if !dup {
			ids[r.ID] = r
		}
	}
	return nil
}

func inconsistent(msg string, r types.TypeRecord) error {
	return rerrors.NewLoadError(rerrors.CodeInconsistentID, msg).
		WithDetails(map[string]interface{}{"key": r.Key().String(), "name": r.Name})
}
