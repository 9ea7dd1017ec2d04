package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/pkg/pagination"
)

func TestOrderList(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewOrderService(orders, new(mockProfileRepository))
	ctx := context.Background()
	page := pagination.Params{Page: 2, PerPage: 1}
	orders.On("List", ctx, "seller-1", page).Return([]domain.Order{{ID: "o2"}}, 3, nil)

	result, err := svc.List(ctx, "seller-1", page)

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestOrderExport(t *testing.T) {
	orders := new(mockOrderRepository)
	profiles := new(mockProfileRepository)
	svc := NewOrderService(orders, profiles)
	ctx := context.Background()
	profiles.On("GetByID", ctx, "seller-1").Return(&domain.Profile{ID: "seller-1", Username: "acme"}, nil)
	orders.On("ListAll", ctx, "seller-1").Return([]domain.Order{
		{ID: "o1", AmountTotalCents: 4990, Currency: "brl", Status: domain.OrderPaid, ProviderSessionID: "cs_1", CreatedAt: fixedNow()},
	}, nil)

	var buf bytes.Buffer
	name, err := svc.Export(ctx, "seller-1", &buf)

	require.NoError(t, err)
	assert.Equal(t, "orders-acme.xlsx", name)

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "o1", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "49.90", sheet.Rows[1].Cells[3].Value)
}
