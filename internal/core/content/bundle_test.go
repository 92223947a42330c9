package content

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundle_ExportImport(t *testing.T) {
	src, _ := newTestService(t)
	ctx := context.Background()

	profileRec, err := src.StoreProfile(ctx, testProfile())
	require.NoError(t, err)
	docRec, err := src.StoreDocument(ctx, Document{Name: "a.pdf", MediaType: "application/pdf", Data: []byte("%PDF bundle")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.ExportBundle(ctx, &buf, profileRec.CID, docRec.CID))

	dst, spy := newTestService(t)
	roots, err := dst.ImportBundle(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{profileRec.CID, docRec.CID}, roots)
	assert.Equal(t, int32(2), spy.puts.Load())

	profile, err := dst.RetrieveProfile(ctx, profileRec.CID)
	require.NoError(t, err)
	assert.Equal(t, testProfile(), *profile)

	doc, err := dst.RetrieveDocument(ctx, docRec.CID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF bundle"), doc)
}

func TestBundle_ExportMissingBlockWritesNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var buf bytes.Buffer
	err := svc.ExportBundle(ctx, &buf, "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, buf.Len())
}

func TestBundle_ExportRequiresCIDs(t *testing.T) {
	svc, _ := newTestService(t)

	var buf bytes.Buffer
	assert.Error(t, svc.ExportBundle(context.Background(), &buf))
}

func TestBundle_ImportRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ImportBundle(context.Background(), bytes.NewReader([]byte("definitely not a car file")))
	assert.Error(t, err)
}
