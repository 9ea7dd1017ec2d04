package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwerioflow/link/internal/domain"
)

func product(id, price string) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price)}
}

func TestAddItem_IncrementsExisting(t *testing.T) {
	s := NewStore("c1", "seller")
	a := product("a", "10.00")

	s.AddItem(a)
	s.AddItem(a)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, s.TotalItems())
	assert.True(t, decimal.RequireFromString("20.00").Equal(s.TotalPrice()))
	assert.False(t, s.IsOpen(), "adding must not open the drawer")
}

func TestAddItem_DistinctProductsKeepOrder(t *testing.T) {
	s := NewStore("c1", "seller")
	for _, id := range []string{"a", "b", "a", "c", "b"} {
		s.AddItem(product(id, "1.00"))
	}

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Product.ID)
	assert.Equal(t, "b", items[1].Product.ID)
	assert.Equal(t, "c", items[2].Product.ID)
	assert.Equal(t, 5, s.TotalItems())
}

func TestRemoveItem(t *testing.T) {
	s := NewStore("c1", "seller")
	s.AddItem(product("a", "10.00"))
	s.AddItem(product("b", "5.50"))

	s.RemoveItem("a")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Product.ID)
	assert.Equal(t, "R$ 5.50", FormatPrice(s.TotalPrice()))
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	s := NewStore("c1", "seller")
	s.AddItem(product("a", "1.00"))
	rev := s.Revision()

	s.RemoveItem("missing")

	assert.Len(t, s.Items(), 1)
	assert.Equal(t, rev, s.Revision())
}

func TestUpdateQuantity(t *testing.T) {
	s := NewStore("c1", "seller")
	s.AddItem(product("a", "2.00"))
	s.AddItem(product("a", "2.00"))

	s.UpdateQuantity("a", 7)
	assert.Equal(t, 7, s.TotalItems())

	s.UpdateQuantity("a", 1)
	assert.Equal(t, 1, s.TotalItems())

	s.UpdateQuantity("missing", 3)
	assert.Equal(t, 1, s.TotalItems())

	s.UpdateQuantity("a", 0)
	assert.Empty(t, s.Items())

	s.AddItem(product("b", "2.00"))
	s.UpdateQuantity("b", -4)
	assert.Empty(t, s.Items())
}

func TestClear_KeepsDrawerState(t *testing.T) {
	s := NewStore("c1", "seller")
	s.AddItem(product("a", "1.00"))
	s.Open()

	s.Clear()

	assert.Equal(t, 0, s.TotalItems())
	assert.True(t, s.TotalPrice().IsZero())
	assert.True(t, s.IsOpen())
}

func TestOpenClose(t *testing.T) {
	s := NewStore("c1", "seller")
	assert.False(t, s.IsOpen())
	s.Open()
	assert.True(t, s.IsOpen())
	s.Close()
	assert.False(t, s.IsOpen())
}

func TestItems_ReturnsCopy(t *testing.T) {
	s := NewStore("c1", "seller")
	s.AddItem(product("a", "1.00"))

	items := s.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, s.TotalItems())
}

func TestRevision_ChangesOnMutation(t *testing.T) {
	s := NewStore("c1", "seller")
	r0 := s.Revision()
	s.AddItem(product("a", "1.00"))
	r1 := s.Revision()
	s.UpdateQuantity("a", 3)
	r2 := s.Revision()
	s.Open()

	assert.NotEqual(t, r0, r1)
	assert.NotEqual(t, r1, r2)
	assert.Equal(t, r2, s.Revision())
}

func TestBeginCheckout_SingleFlight(t *testing.T) {
	s := NewStore("c1", "seller")
	assert.True(t, s.BeginCheckout())
	assert.False(t, s.BeginCheckout())
	s.EndCheckout()
	assert.True(t, s.BeginCheckout())
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := NewStore("c1", "seller")
	a := product("a", "0.10")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(a)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.TotalItems())
	assert.Equal(t, "R$ 5.00", FormatPrice(s.TotalPrice()))
}

func TestQuantityCap(t *testing.T) {
	s := NewStore("c1", "seller")
	a := product("a", "1.00")
	s.AddItem(a)

	s.UpdateQuantity("a", 5000)
	assert.Equal(t, MaxQuantity, s.TotalItems())

	rev := s.Revision()
	s.AddItem(a)
	assert.Equal(t, MaxQuantity, s.TotalItems())
	assert.Equal(t, rev, s.Revision())
}

func TestDrawer_ConcurrentMutation(t *testing.T) {
	s := NewStore("c1", "seller")
	a := product("a", "1.00")

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			s.Open()
			s.AddItem(a)
			s.Close()
			s.Clear()
		}
	}()

	for i := 0; i < 200; i++ {
		d := Drawer(s)
		sum := 0
		for _, l := range d.Lines {
			sum += l.Quantity
		}
		assert.Equal(t, sum, d.TotalItems)
		assert.Equal(t, len(d.Lines) == 0, d.Empty)
	}
	cancel()
	wg.Wait()
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	s := NewStore("c1", "seller")
	ctx := NewContext(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))
}

func TestButton(t *testing.T) {
	s := NewStore("c1", "seller")
	assert.Nil(t, Button(s))

	s.AddItem(product("a", "1.00"))
	btn := Button(s)
	require.NotNil(t, btn)
	assert.Equal(t, "1", btn.Badge)

	s.UpdateQuantity("a", 9)
	assert.Equal(t, "9", Button(s).Badge)

	s.UpdateQuantity("a", 10)
	assert.Equal(t, "9+", Button(s).Badge)
	assert.Equal(t, 10, Button(s).Count)
}

func TestDrawer(t *testing.T) {
	s := NewStore("c1", "seller")
	empty := Drawer(s)
	assert.True(t, empty.Empty)
	assert.Equal(t, "R$ 0.00", empty.Total)
	assert.NotNil(t, empty.Lines)

	s.AddItem(product("a", "12.5"))
	s.AddItem(product("a", "12.5"))
	s.AddItem(product("b", "3"))
	s.Open()

	d := Drawer(s)
	assert.False(t, d.Empty)
	assert.True(t, d.Open)
	assert.Equal(t, "c1", d.CartID)
	assert.Equal(t, 3, d.TotalItems)
	assert.Equal(t, "R$ 28.00", d.Total)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, "R$ 12.50", d.Lines[0].UnitPrice)
	assert.Equal(t, "R$ 25.00", d.Lines[0].LineTotal)
}

func TestParseQuantity(t *testing.T) {
	tests := map[string]int{
		"3":    3,
		" 12 ": 12,
		"2.7":  2,
		"5abc": 5,
		"":     1,
		"abc":  1,
		"0":    1,
		"-":    1,
		"-2":   -2,
		"+4":   4,
		"999":  MaxQuantity,
		"1000": MaxQuantity,

		"9223372036854775807":   MaxQuantity,
		"99999999999999999999":  MaxQuantity,
		"-99999999999999999999": -1,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseQuantity(raw), "input %q", raw)
	}
}

func TestSessions_CreateGetDiscard(t *testing.T) {
	reg := NewSessions(time.Minute)
	s := reg.Create("seller-1")
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "seller-1", s.SellerID())

	got, ok := reg.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	other := reg.Create("seller-1")
	assert.NotEqual(t, s.ID(), other.ID())
	assert.Equal(t, 2, reg.Len())

	reg.Discard(s.ID())
	_, ok = reg.Get(s.ID())
	assert.False(t, ok)
}

func TestSessions_SweepEvictsIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := NewSessions(time.Minute)
	reg.now = func() time.Time { return now }

	idle := reg.Create("s")
	now = now.Add(30 * time.Second)
	fresh := reg.Create("s")
	now = now.Add(45 * time.Second)

	reg.sweep()

	_, ok := reg.Get(idle.ID())
	assert.False(t, ok)
	_, ok = reg.Get(fresh.ID())
	assert.True(t, ok)
}

func TestSessions_RunStopsOnCancel(t *testing.T) {
	reg := NewSessions(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
