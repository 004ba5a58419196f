package devindex

import (
	"context"
	"errors"
	"math"
	"testing"
)

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func seedExample(t *testing.T, c *Client) {
	t.Helper()
	ctx := context.Background()
	devices := []Device{
		{ID: "D1", Attributes: []Attribute{
			{Scope: "inventory", Name: "string", Value: "Lorem ipsum dolor sit amet"},
			{Scope: "inventory", Name: "number", Value: int64(1) << 47},
		}},
		{ID: "D2", Attributes: []Attribute{
			{Scope: "inventory", Name: "string", Value: "consectetur adipiscing elit"},
			{Scope: "inventory", Name: "number", Value: 420.69},
		}},
		{ID: "D3", Attributes: []Attribute{
			{Scope: "inventory", Name: "string", Value: "sed do eiusmod"},
			{Scope: "inventory", Name: "number", Value: 1},
			{Scope: "inventory", Name: "tags", Value: []any{"a", "b"}},
		}},
	}
	for _, d := range devices {
		if err := c.Index(ctx, "t1", d); err != nil {
			t.Fatalf("Index %s: %v", d.ID, err)
		}
	}
}

func ids(res Result) []string {
	out := make([]string, 0, len(res.Devices))
	for _, d := range res.Devices {
		out = append(out, d.ID)
	}
	return out
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestClient_EqPreservesLargeInteger(t *testing.T) {
	c := newClient(t)
	seedExample(t, c)

	res, err := c.Search("t1").Where("inventory", "number", Eq, int64(1)<<47).Do(context.Background())
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !equalIDs(ids(res), "D1") {
		t.Fatalf("ids = %v, want [D1]", ids(res))
	}
	for _, a := range res.Devices[0].Attributes {
		if a.Name == "number" && a.Value != float64(int64(1)<<47) {
			t.Errorf("number = %v", a.Value)
		}
	}
}

func TestClient_InSortedByNumber(t *testing.T) {
	c := newClient(t)
	seedExample(t, c)

	res, err := c.Search("t1").
		Where("inventory", "string", In, []any{"Lorem ipsum dolor sit amet", "consectetur adipiscing elit"}).
		SortBy("inventory", "number", Asc).
		Do(context.Background())
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !equalIDs(ids(res), "D2", "D1") {
		t.Errorf("ids = %v, want [D2 D1]", ids(res))
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
}

func TestClient_NegationsAndExists(t *testing.T) {
	c := newClient(t)
	seedExample(t, c)
	ctx := context.Background()

	tests := []struct {
		name  string
		build func(*SearchBuilder) *SearchBuilder
		want  []string
	}{
		{
			name:  "gt",
			build: func(b *SearchBuilder) *SearchBuilder { return b.Where("inventory", "number", Gt, 100) },
			want:  []string{"D1", "D2"},
		},
		{
			name:  "ne includes missing",
			build: func(b *SearchBuilder) *SearchBuilder { return b.Where("inventory", "tags", Ne, "a") },
			want:  []string{"D1", "D2"},
		},
		{
			name:  "nin includes missing",
			build: func(b *SearchBuilder) *SearchBuilder { return b.Where("inventory", "tags", Nin, []any{"z"}) },
			want:  []string{"D1", "D2", "D3"},
		},
		{
			name:  "exists false",
			build: func(b *SearchBuilder) *SearchBuilder { return b.Where("inventory", "tags", Exists, false) },
			want:  []string{"D1", "D2"},
		},
		{
			name:  "regex",
			build: func(b *SearchBuilder) *SearchBuilder { return b.Where("inventory", "string", Regex, "sed.*") },
			want:  []string{"D3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.build(c.Search("t1")).Do(ctx)
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if !equalIDs(ids(res), tt.want...) {
				t.Errorf("ids = %v, want %v", ids(res), tt.want)
			}
		})
	}
}

func TestClient_MultiValueAttribute(t *testing.T) {
	c := newClient(t)
	seedExample(t, c)

	res, err := c.Search("t1").Where("inventory", "tags", Eq, "b").Select("inventory", "tags").Do(context.Background())
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !equalIDs(ids(res), "D3") {
		t.Fatalf("ids = %v, want [D3]", ids(res))
	}
	attrs := res.Devices[0].Attributes
	if len(attrs) != 1 || attrs[0].Name != "tags" {
		t.Fatalf("attributes = %+v, want only tags", attrs)
	}
	if vs, ok := attrs[0].Value.([]any); !ok || len(vs) != 2 {
		t.Errorf("tags = %#v, want two values", attrs[0].Value)
	}
}

func TestClient_RemoveAndTenantIsolation(t *testing.T) {
	c := newClient(t)
	seedExample(t, c)
	ctx := context.Background()

	if err := c.Remove(ctx, "t1", "D2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := c.Remove(ctx, "t1", "missing"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	res, err := c.Search("t1").Do(ctx)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !equalIDs(ids(res), "D1", "D3") {
		t.Errorf("ids = %v, want [D1 D3]", ids(res))
	}

	other, err := c.Search("t2").Do(ctx)
	if err != nil {
		t.Fatalf("Do t2: %v", err)
	}
	if len(other.Devices) != 0 || other.Total != 0 {
		t.Errorf("t2 = %+v, want empty", other)
	}

	if err := c.RemoveTenant(ctx, "t1"); err != nil {
		t.Fatalf("RemoveTenant: %v", err)
	}
	res, _ = c.Search("t1").Do(ctx)
	if len(res.Devices) != 0 {
		t.Errorf("after RemoveTenant ids = %v", ids(res))
	}
}

func TestClient_Errors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	err := c.Index(ctx, "t1", Device{ID: "d1", Attributes: []Attribute{
		{Scope: "inventory", Name: "obj", Value: map[string]any{"a": 1}},
	}})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Index object: err = %v, want ErrUnsupportedType", err)
	}

	if err := c.Index(ctx, "", Device{ID: "d1"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Index without tenant: err = %v", err)
	}

	_, err = c.Search("t1").Where("inventory", "x", Operator("$near"), 1).Do(ctx)
	if !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("unknown operator: err = %v", err)
	}

	_, err = c.Search("t1").Where("inventory", "x", In, "not-a-list").Do(ctx)
	if !errors.Is(err, ErrInvalidFilterValue) {
		t.Errorf("bad $in: err = %v", err)
	}

	err = c.Index(ctx, "t1", Device{ID: "d1", Attributes: []Attribute{
		{Scope: "my_scope", Name: "x", Value: "v"},
	}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Index scope with underscore: err = %v, want ErrInvalidRequest", err)
	}

	_, err = c.Search("t1").Page(math.MaxInt/10, 20).Do(ctx)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("page past result window: err = %v, want ErrInvalidRequest", err)
	}

	_, err = c.Search("").Do(ctx)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("no tenant: err = %v", err)
	}

	c.Close()
	if err := c.Ping(ctx); err == nil {
		t.Error("Ping after Close succeeded")
	}
	if _, err := c.Search("t1").Do(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("search after close: err = %v, want ErrStoreUnavailable", err)
	}
}

func TestClient_DottedAttributeName(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	for id, version := range map[string]string{"d1": "3.1.0", "d2": "2.6.0"} {
		err := c.Index(ctx, "t1", Device{ID: id, Attributes: []Attribute{
			{Scope: "inventory", Name: "rootfs-image.version", Value: version},
			{Scope: "inventory", Name: "rootfs-image", Value: "core"},
		}})
		if err != nil {
			t.Fatalf("Index %s: %v", id, err)
		}
	}

	res, err := c.Search("t1").
		Where("inventory", "rootfs-image.version", Exists, true).
		SortBy("inventory", "rootfs-image.version", Asc).
		Select("inventory", "rootfs-image.version").
		Do(ctx)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !equalIDs(ids(res), "d2", "d1") {
		t.Fatalf("ids = %v, want [d2 d1]", ids(res))
	}
	attrs := res.Devices[0].Attributes
	if len(attrs) != 1 || attrs[0].Name != "rootfs-image.version" || attrs[0].Value != "2.6.0" {
		t.Errorf("attributes = %+v", attrs)
	}
}

func TestClient_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := New(WithDataDir(dir), WithMaxOpenIndexes(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedExample(t, c)
	c.Close()

	reopened := newClient(t, WithDataDir(dir))
	res, err := reopened.Search("t1").Do(ctx)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("total after reopen = %d, want 3", res.Total)
	}
}
