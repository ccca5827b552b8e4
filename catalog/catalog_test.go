package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ err error }

func (f failingSource) Relations(context.Context) ([]Relation, error)    { return nil, f.err }
func (f failingSource) ForeignKeys(context.Context) ([]ForeignKey, error) { return nil, f.err }

func testSnapshot() *Snapshot {
	return &Snapshot{
		Tables: []Relation{
			{
				Name: "parents",
				Columns: []Column{
					{Name: "id", DataType: "integer"},
					{Name: "name", DataType: "varchar", MaxLength: 255, Nullable: true},
				},
				PrimaryKey: &Key{Name: "parents", Kind: PrimaryKey, Columns: []string{"id"}},
			},
			{
				Schema: "sales",
				Name:   "children",
				Columns: []Column{
					{Name: "id", DataType: "integer"},
					{Name: "parent_id", DataType: "integer", Nullable: true},
				},
				PrimaryKey: &Key{Name: "children_pkey", Kind: PrimaryKey, Columns: []string{"id"}},
				UniqueKeys: []Key{{Name: "children_parent", Kind: UniqueKey, Columns: []string{"parent_id"}}},
			},
		},
		References: []ForeignKey{
			{Schema: "sales", Table: "children", Column: "parent_id", RefTable: "parents", RefColumn: "id", Constraint: "fk_parent"},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := testSnapshot()
	require.NoError(t, in.Encode(&buf))

	out, err := DecodeSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snapshotVersion, out.Version)
	assert.Equal(t, in.Tables, out.Tables)
	assert.Equal(t, in.References, out.References)

	rels, err := out.Relations(context.Background())
	require.NoError(t, err)
	assert.Len(t, rels, 2)
}

func TestDecodeSnapshot(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeSnapshot(bytes.NewReader([]byte{0xc1}))
		require.Error(t, err)
	})

	t.Run("version", func(t *testing.T) {
		var buf bytes.Buffer
		s := testSnapshot()
		s.Version = 99
		require.NoError(t, s.Encode(&buf))
		_, err := DecodeSnapshot(&buf)
		require.ErrorContains(t, err, "unsupported snapshot version 99")
	})
}

func TestCapture(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		snap, err := Capture(context.Background(), testSnapshot())
		require.NoError(t, err)
		assert.Len(t, snap.Tables, 2)
		assert.Len(t, snap.References, 1)
	})

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Capture(context.Background(), failingSource{err: boom})
		require.ErrorIs(t, err, boom)
	})
}

func TestForeignKeyString(t *testing.T) {
	fk := ForeignKey{Schema: "sales", Table: "orders", Column: "customer_id", RefTable: "customers", Constraint: "fk_customer"}
	assert.Equal(t, "fk_customer: sales.orders.customer_id -> customers", fk.String())

	poly := ForeignKey{Table: "comments", Column: "commentable", RefType: "Post", Polymorphic: true}
	assert.Equal(t, "comments.commentable -> Post", poly.String())
}

func TestMeasureHint(t *testing.T) {
	tests := []struct {
		typ  string
		key  bool
		want bool
	}{
		{"integer", false, true},
		{"numeric(10,2)", false, true},
		{"DOUBLE PRECISION", false, true},
		{"integer", true, false},
		{"varchar(255)", false, false},
		{"timestamp", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.want, MeasureHint(tt.typ, tt.key))
		})
	}
}

func TestRelationColumn(t *testing.T) {
	rel := testSnapshot().Tables[0]
	c, ok := rel.Column("name")
	require.True(t, ok)
	assert.True(t, c.Nullable)
	_, ok = rel.Column("missing")
	assert.False(t, ok)
	assert.Equal(t, "PRIMARY KEY", PrimaryKey.String())
}
