package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyclus/dbtypes/internal/catalog"
	"github.com/cyclus/dbtypes/internal/source"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg := loadEmbedded(t)

	cat, err := catalog.NewCatalog(filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	defer cat.Close()

	info, err := cat.WriteSnapshot(ctx, reg.Records(), reg.Fingerprint(), source.EmbeddedName)
	require.NoError(t, err)
	assert.Equal(t, reg.Len(), info.RecordCount)

	back, err := Load(ctx, source.Snapshot(cat, info.SnapshotID))
	require.NoError(t, err)
	assert.Equal(t, reg.Fingerprint(), back.Fingerprint())
	assert.Equal(t, reg.Records(), back.Records())
}
