package server

import (
	"net/http"
	"testing"

	"istancool/internal/models"
	"istancool/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistrictHandlers(t *testing.T) {
	ts := newTestServer(t)
	kad := testutil.CreateDistrict(t, ts.db, "Kadıköy", "kadikoy", models.RegionAsia)
	testutil.CreateDistrict(t, ts.db, "Fatih", "fatih", models.RegionEurope)

	resp := ts.do(t, http.MethodGet, "/districts?region=asia", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	asia := decode[[]models.District](t, resp)
	require.Len(t, asia, 1)
	assert.Equal(t, kad.ID, asia[0].ID)

	resp = ts.do(t, http.MethodGet, "/districts?region=mars", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/districts/slug/kadikoy", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Kadıköy", decode[models.District](t, resp).Name)

	resp = ts.do(t, http.MethodGet, "/districts/"+itoa(kad.ID), nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/districts/9999", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = ts.do(t, http.MethodGet, "/districts/slug/yok", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
