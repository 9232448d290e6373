package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/models"
)

func ids(ts []models.Ticket) []int64 {
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func ptr(v int64) *int64 { return &v }

var admin = &models.User{ID: 1, Role: models.RoleAdmin}

func TestDeriveSearchIsCaseInsensitive(t *testing.T) {
	in := []models.Ticket{
		{ID: 1, Subject: "Printer jam", PriorityID: 1},
		{ID: 2, Subject: "VPN down", PriorityID: 1},
		{ID: 3, Subject: "New printer", PriorityID: 2},
	}
	got := Derive(admin, in, Query{Search: "printer"})
	assert.Equal(t, []int64{1, 3}, ids(got))

	got = Derive(admin, in, Query{Search: "  PRINTER "})
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestDeriveSortByPriority(t *testing.T) {
	in := []models.Ticket{
		{ID: 1, PriorityID: 1},
		{ID: 2, PriorityID: 3},
		{ID: 3, PriorityID: 2},
	}
	assert.Equal(t, []int64{2, 3, 1}, ids(Derive(admin, in, Query{Order: Desc})))
	assert.Equal(t, []int64{1, 3, 2}, ids(Derive(admin, in, Query{Order: Asc})))
	assert.Equal(t, []int64{1, 2, 3}, ids(in), "input untouched")
}

func TestDeriveStableTies(t *testing.T) {
	in := []models.Ticket{
		{ID: 10, PriorityID: 2},
		{ID: 11, PriorityID: 1},
		{ID: 12, PriorityID: 2},
		{ID: 13, PriorityID: 1},
	}
	assert.Equal(t, []int64{11, 13, 10, 12}, ids(Derive(admin, in, Query{})))
	assert.Equal(t, []int64{10, 12, 11, 13}, ids(Derive(admin, in, Query{Order: Desc})))
}

func TestDeriveVisibility(t *testing.T) {
	in := []models.Ticket{
		{ID: 1, CreatedBy: 7, AssignedTo: ptr(2)},
		{ID: 2, CreatedBy: 8, AssignedTo: ptr(2)},
		{ID: 3, CreatedBy: 7},
	}
	customer := &models.User{ID: 7, Role: models.RoleCustomer}
	agent := &models.User{ID: 2, Role: models.RoleAgent}

	assert.Equal(t, []int64{1, 3}, ids(Derive(customer, in, Query{})))
	assert.Equal(t, []int64{1, 2}, ids(Derive(agent, in, Query{})))
	assert.Equal(t, []int64{1, 2, 3}, ids(Derive(admin, in, Query{})))
	assert.Empty(t, Derive(nil, in, Query{}))
}

func TestDeriveStatusFilter(t *testing.T) {
	in := []models.Ticket{
		{ID: 1, StatusID: 1},
		{ID: 2, StatusID: 2},
		{ID: 3, StatusID: 1},
	}
	assert.Equal(t, []int64{1, 3}, ids(Derive(admin, in, Query{StatusID: 1})))
	assert.Len(t, Derive(admin, in, Query{StatusID: 0}), 3)
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, Desc, ParseOrder("DESC"))
	assert.Equal(t, Asc, ParseOrder("asc"))
	assert.Equal(t, Asc, ParseOrder("sideways"))
}

type fakeSource struct {
	list    []models.Ticket
	version uint64
	reads   int
}

func (f *fakeSource) List() []models.Ticket {
	f.reads++
	return f.list
}
func (f *fakeSource) Version() uint64 { return f.version }

func TestDeriverMemoizes(t *testing.T) {
	src := &fakeSource{list: []models.Ticket{{ID: 1, PriorityID: 2}, {ID: 2, PriorityID: 1}}, version: 1}
	d, err := NewDeriver(src, 8)
	require.NoError(t, err)

	first := d.Tickets(admin, Query{})
	second := d.Tickets(admin, Query{})
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.reads)

	second[0].Subject = "mutated"
	assert.Empty(t, d.Tickets(admin, Query{})[0].Subject, "callers get copies")

	src.list = append(src.list, models.Ticket{ID: 3, PriorityID: 1})
	src.version++
	assert.Equal(t, []int64{2, 3, 1}, ids(d.Tickets(admin, Query{})))
	assert.Equal(t, 2, src.reads)

	d.Tickets(&models.User{ID: 2, Role: models.RoleAgent}, Query{})
	assert.Equal(t, 3, src.reads, "different user is a different key")
}
