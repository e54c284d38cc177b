//go:build !sqlite

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStoreSQLiteNeedsBuildTag(t *testing.T) {
	_, err := NewStore(KindSQLite, "runs.db")
	require.Error(t, err)
	require.Contains(t, err.Error(), "sqlite")
}

func TestDefaultStoreKindIsMemory(t *testing.T) {
	require.Equal(t, KindMemory, DefaultStoreKind())
}
