package voucher

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRules(t *testing.T) {
	rules, err := ParseRules(" save15:percent:12.5 , flat5:FIXED:$5 ,")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, Rule{Code: "SAVE15", Kind: KindPercent, PercentBps: 1250, Description: "12.5% off"}, rules[0])
	require.Equal(t, Rule{Code: "FLAT5", Kind: KindFixed, Value: 500, Description: "$5.00 off"}, rules[1])
}

func TestParseRulesRejectsMalformed(t *testing.T) {
	for _, spec := range []string{
		"SAVE10:percent",
		":percent:10",
		"SAVE10:percent:0",
		"SAVE10:percent:150",
		"TINY:percent:0.001",
		"TINY:percent:0.004",
		"DUST:fixed:0.001",
		"WELCOME:fixed:-1",
		"BOGO:bogo:1",
	} {
		_, err := ParseRules(spec)
		require.ErrorIs(t, err, ErrInvalidRule, spec)
	}
}

func TestParseRulesSmallestPercent(t *testing.T) {
	rules, err := ParseRules("MICRO:percent:0.005")
	require.NoError(t, err)
	require.EqualValues(t, 1, rules[0].PercentBps)
}

func TestTableFromSpecDefaults(t *testing.T) {
	table, err := TableFromSpec("")
	require.NoError(t, err)
	require.Equal(t, []string{"SAVE10", "SAVE20", "WELCOME"}, table.Codes())

	table, err = TableFromSpec("VIP:percent:50")
	require.NoError(t, err)
	require.Equal(t, []string{"VIP"}, table.Codes())
}

func TestPreviewHandler(t *testing.T) {
	h := &Handler{Table: DefaultTable()}

	rr := httptest.NewRecorder()
	h.Preview(rr, httptest.NewRequest(http.MethodPost, "/coupons/preview", strings.NewReader(`{"code":"welcome","subtotal":"$10.00"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"discount":1000`)
	require.Contains(t, rr.Body.String(), `"total":"$0.00"`)

	rr = httptest.NewRecorder()
	h.Preview(rr, httptest.NewRequest(http.MethodPost, "/coupons/preview", strings.NewReader(`{"code":"nope","subtotal":"10"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "INVALID_COUPON")

	rr = httptest.NewRecorder()
	h.Preview(rr, httptest.NewRequest(http.MethodPost, "/coupons/preview", strings.NewReader(`{"code":"SAVE10","subtotal":"-3"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
