package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	s := newSheetsService(srv, "ledger_tid")
	s.now = func() time.Time { return time.Date(2030, 5, 2, 8, 0, 0, 0, time.UTC) }
	return mux, s
}

func sampleBooking(id string) *models.Booking {
	consultant := "cons-1"
	return &models.Booking{
		ID:           id,
		CustomerID:   "cust-1",
		ServiceID:    "svc-facial",
		ConsultantID: &consultant,
		Date:         "2030-05-10",
		Time:         "14:30",
		Status:       models.StatusPending,
		CheckinCode:  "A1B2C3D4",
		CreatedAt:    time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	assert.NoError(t, s.TestConnection(context.Background()))
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"b-123"}, {}, {"b-456"}},
		})
	})
	require.NoError(t, s.WarmUpCache(context.Background()))

	row, ok := s.getCachedRow("b-123")
	require.True(t, ok)
	assert.Equal(t, 2, row)
	row, ok = s.getCachedRow("b-456")
	require.True(t, ok)
	assert.Equal(t, 4, row)
	_, ok = s.getCachedRow("ID")
	assert.False(t, ok)
}

func TestSheetsService_UpsertBooking_Append(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	var appended sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&appended)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:J10"},
		})
	})

	require.NoError(t, s.UpsertBooking(context.Background(), sampleBooking("b-789")))

	row, ok := s.getCachedRow("b-789")
	require.True(t, ok)
	assert.Equal(t, 10, row)
	require.Len(t, appended.Values, 1)
	assert.Equal(t, "b-789", appended.Values[0][0])
	assert.Equal(t, "Pending", appended.Values[0][6])
}

func TestSheetsService_UpsertBooking_Update(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-123", 2)
	called := false
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A2:J2", func(w http.ResponseWriter, r *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.UpsertBooking(context.Background(), sampleBooking("b-123")))
	assert.True(t, called)
	assert.Error(t, s.UpsertBooking(context.Background(), nil))
}

func TestSheetsService_UpdateBookingStatus(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-123", 2)
	var status, updated sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!G2:G2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&status)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!J2:J2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&updated)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.UpdateBookingStatus(context.Background(), "b-123", models.StatusConfirmed))
	assert.Equal(t, "Confirmed", status.Values[0][0])
	assert.Equal(t, "2030-05-02 08:00:00", updated.Values[0][0])
}

func TestSheetsService_FindBookingRow_Missing(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"b-1"}}})
	})

	_, err := s.FindBookingRow(context.Background(), "b-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.UpdateBookingStatus(context.Background(), "b-404", models.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.FindBookingRow(context.Background(), "")
	assert.Error(t, err)
}

func TestBookingRowValues(t *testing.T) {
	row := bookingRowValues(sampleBooking("b-1"))
	assert.Equal(t, []interface{}{
		"b-1", "cust-1", "svc-facial", "cons-1", "2030-05-10", "14:30", "Pending", "A1B2C3D4",
		"2030-05-01 09:00:00", "2030-05-01 09:00:00",
	}, row)
	assert.Len(t, row, len(bookingHeaders))

	b := sampleBooking("b-2")
	b.ConsultantID = nil
	assert.Equal(t, "", bookingRowValues(b)[3])
}

func TestRowFromRange(t *testing.T) {
	row, ok := rowFromRange("Bookings!A10:J10")
	assert.True(t, ok)
	assert.Equal(t, 10, row)

	row, ok = rowFromRange("'Bookings'!B7")
	assert.True(t, ok)
	assert.Equal(t, 7, row)

	_, ok = rowFromRange("Bookings!A:A")
	assert.False(t, ok)
}

func TestServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_email":"ledger@project.iam.gserviceaccount.com"}`), 0o600))

	email, err := ServiceAccountEmail(path)
	require.NoError(t, err)
	assert.Equal(t, "ledger@project.iam.gserviceaccount.com", email)

	_, err = ServiceAccountEmail(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
