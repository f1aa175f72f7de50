package classifier

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orderstack/orderstack/internal/models"
)

func workbookBytes(t *testing.T, cells map[string]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	for cell, value := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, value))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func testSender() *models.Sender {
	return &models.Sender{
		ID:          "sndr_test",
		CompanyName: "FoodCo",
		Email:       "orders@foodco.kz",
		Cities: models.JSONMap{
			"almaty":  "Almaty",
			"алматы":  "Almaty",
			"astana":  "Astana",
			"астана":  "Astana",
			"karagan": "Karaganda",
		},
		CellCoordinates: models.StringList{"B2", "C3"},
		SupplierProbes: models.SupplierProbes{
			{Supplier: "FoodCo", Candidates: []string{"foodco"}, Cells: []string{"A1"}},
			{Supplier: "AgroTrade", Candidates: []string{"agro"}, Cells: []string{"A1", "A2"}},
		},
	}
}

func TestClassify_ResolvesCityAndSupplier(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"B2": "г. Алматы, склад 4",
		"A1": "ТОО FoodCo Казахстан",
	})

	c, err := Classify(data, "orders.xlsx", testSender())
	require.NoError(t, err)

	assert.Equal(t, "Almaty", c.CityFolder())
	assert.Equal(t, "FoodCo", c.SupplierFolder())
}

func TestClassify_FirstMatchingCellWins(t *testing.T) {
	// B2 is probed before C3, so its match decides the city
	data := workbookBytes(t, map[string]string{
		"B2": "astana",
		"C3": "almaty",
	})

	c, err := Classify(data, "orders.xlsx", testSender())
	require.NoError(t, err)
	assert.Equal(t, "Astana", c.CityFolder())
}

func TestClassify_SkipsEmptyCells(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"C3": "доставка в астана",
	})

	c, err := Classify(data, "orders.xlsx", testSender())
	require.NoError(t, err)
	assert.Equal(t, "Astana", c.CityFolder())
}

func TestClassify_UnknownCityAndSupplier(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"B2": "склад без города",
		"A1": "неизвестный поставщик",
	})

	c, err := Classify(data, "orders.xlsx", testSender())
	require.NoError(t, err)

	assert.Equal(t, CityUnknown, c.CityFolder())
	assert.Equal(t, SupplierUnknown, c.SupplierFolder())
	assert.False(t, c.City.Resolved)
	assert.False(t, c.Supplier.Resolved)
}

func TestClassify_NonSpreadsheetFilename(t *testing.T) {
	_, err := Classify([]byte("whatever"), "orders.csv", testSender())
	assert.Error(t, err)
}

func TestMatchSubCity_LongestKeyWins(t *testing.T) {
	cities := models.JSONMap{
		"alma":   "Short",
		"almaty": "Long",
	}

	key, ok := matchSubCity("город almaty", cities)
	require.True(t, ok)
	assert.Equal(t, "almaty", key)
}

func TestMatchSubCity_ComparesCharactersNotBytes(t *testing.T) {
	// "каскелен" is 8 characters but 16 UTF-8 bytes; the 10-character
	// Latin key must still win
	cities := models.JSONMap{
		"каскелен":   "Kaskelen",
		"talgarskiy": "Talgar",
	}

	key, ok := matchSubCity("каскелен trassa talgarskiy", cities)
	require.True(t, ok)
	assert.Equal(t, "talgarskiy", key)
}

func TestMatchSubCity_CyrillicTieLastWins(t *testing.T) {
	// equal character length across alphabets still ties, resolved to
	// the later key in sorted order (Cyrillic sorts after Latin here)
	cities := models.JSONMap{
		"астана": "Astana",
		"almaty": "Almaty",
	}

	key, ok := matchSubCity("astana али almaty, астана", cities)
	require.True(t, ok)
	assert.Equal(t, "астана", key)
}

func TestMatchSubCity_LastKeyWinsOnEqualLength(t *testing.T) {
	// both keys match and have equal length; the later one in sorted
	// key order is kept
	cities := models.JSONMap{
		"north": "NorthCity",
		"south": "SouthCity",
	}

	key, ok := matchSubCity("north and south depots", cities)
	require.True(t, ok)
	assert.Equal(t, "south", key)
}

func TestMatchSubCity_CaseInsensitive(t *testing.T) {
	cities := models.JSONMap{"almaty": "Almaty"}

	key, ok := matchSubCity("ALMATY WAREHOUSE", cities)
	require.True(t, ok)
	assert.Equal(t, "almaty", key)
}

func TestClassify_SupplierProbeOrder(t *testing.T) {
	// both probes match; the first declared probe wins
	data := workbookBytes(t, map[string]string{
		"B2": "almaty",
		"A1": "foodco agro holding",
	})

	c, err := Classify(data, "orders.xlsx", testSender())
	require.NoError(t, err)
	assert.Equal(t, "FoodCo", c.SupplierFolder())
}

func TestClassify_SupplierSecondProbeCell(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"B2": "almaty",
		"A2": "agro trade ltd",
	})

	c, err := Classify(data, "orders.xlsx", testSender())
	require.NoError(t, err)
	assert.Equal(t, "AgroTrade", c.SupplierFolder())
}

func TestSanitizeFolderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Almaty", "Almaty"},
		{`ТОО "Ромашка"`, "ТОО Ромашка"},
		{"a/b\\c:d", "abcd"},
		{"  trimmed  ", "trimmed"},
		{"mix_ed-2 ok", "mix_ed-2 ok"},
		{"...", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFolderName(tt.in), tt.in)
	}
}

func TestResolutionFolderName_EmptyAfterSanitize(t *testing.T) {
	r := resolved("///")
	assert.Equal(t, CityUnknown, r.FolderName(CityUnknown))
}
