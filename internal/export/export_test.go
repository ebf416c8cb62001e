package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"consultbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleViews() []*models.BookingView {
	return []*models.BookingView{
		{
			Booking: models.Booking{
				ID: "b-1", CustomerID: "cust-1", ServiceID: "svc-facial", Date: "2030-06-01", Time: "10:00",
				Status: models.StatusConfirmed, CheckinCode: "AB12CD34",
				CreatedAt: time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC),
			},
			ServiceName:    "Hydrating Facial",
			ConsultantName: "Linh Tran",
		},
		{
			Booking: models.Booking{
				ID: "b-2", CustomerID: "cust-2", ServiceID: "svc-peel", Date: "2030-06-02", Time: "15:30",
				Status: models.StatusCancelled, RescheduleUsed: true,
			},
			ServiceName: "Chemical Peel",
		},
	}
}

func TestBuild(t *testing.T) {
	f, err := Build("2030-06-01", "2030-06-30", sampleViews())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Period: 2030-06-01 - 2030-06-30", rows[0][0])
	assert.Equal(t, headers, rows[1])
	assert.Equal(t, "b-1", rows[2][0])
	assert.Equal(t, "Confirmed", rows[2][3])
	assert.Equal(t, "Linh Tran", rows[2][6])
	assert.Equal(t, "AB12CD34", rows[2][7])
	assert.Equal(t, "yes", rows[3][8])

	assert.Equal(t, []string{sheetName}, f.GetSheetList())
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "2030-06-01", "2030-06-30", sampleViews()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(sheetName, "F4")
	require.NoError(t, err)
	assert.Equal(t, "Chemical Peel", v)
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := Save(dir, "2030-06-01", "2030-06-30", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "consultbook_export_2030-06-01_to_2030-06-30.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
