package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
)

type lineInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type sampleInput struct {
	SKU      string               `json:"sku" validate:"required,sku"`
	Method   enums.DeliveryMethod `json:"delivery_method" validate:"required,enum"`
	Currency *enums.Currency      `json:"currency" validate:"omitempty,enum"`
	Price    decimal.Decimal      `json:"price" validate:"gte=0"`
	Discount *decimal.Decimal     `json:"discount" validate:"omitempty,gte=0,lte=100"`
	Items    []lineInput          `json:"items" validate:"required,min=1,dive"`
}

func decode(t *testing.T, body string) (sampleInput, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var in sampleInput
	return in, DecodeJSONBody(req, &in)
}

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	return details
}

func TestDecodeJSONBodyAcceptsValidInput(t *testing.T) {
	in, err := decode(t, `{"sku":"TAL-001","delivery_method":"pickup","currency":"USD","price":"1500.50","discount":10,"items":[{"quantity":2}]}`)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryMethodPickup, in.Method)
	assert.True(t, in.Price.Equal(decimal.RequireFromString("1500.50")))
	require.NotNil(t, in.Currency)
	assert.Equal(t, enums.CurrencyUSD, *in.Currency)
}

func TestDecodeJSONBodyRejectsEmptyBody(t *testing.T) {
	_, err := decode(t, ``)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "request body is required", typed.Message())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decode(t, `{"sku":"A","delivery_method":"pickup","items":[{"quantity":1}],"extra":true}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	_, err := decode(t, `{"sku":"has space","delivery_method":"drone","currency":"JPY","price":-1,"discount":150,"items":[{"quantity":0}]}`)
	details := validationDetails(t, err)

	assert.Equal(t, "must be a non-empty code without spaces", details["sku"])
	assert.Equal(t, "drone is not a supported value", details["delivery_method"])
	assert.Contains(t, details, "currency")
	assert.Equal(t, "must be 0 or more", details["price"])
	assert.Equal(t, "must be 100 or less", details["discount"])
	assert.Equal(t, "is required", details["items[0].quantity"])
}

func TestDecodeJSONBodyRequiresItems(t *testing.T) {
	_, err := decode(t, `{"sku":"A","delivery_method":"delivery","items":[]}`)
	details := validationDetails(t, err)
	assert.Equal(t, "must contain at least 1 item(s)", details["items"])
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?branch_id=6f1c1b7e-3c1a-4f7e-9a47-1f3f8a0b2c11&low_stock=true&status=approved&bad_status=lost&amount=10.5&bad=x", nil)

	branchID, err := QueryUUID(req, "branch_id")
	require.NoError(t, err)
	require.NotNil(t, branchID)
	assert.Equal(t, "6f1c1b7e-3c1a-4f7e-9a47-1f3f8a0b2c11", branchID.String())

	_, err = QueryUUID(req, "bad")
	require.Error(t, err)

	low, err := QueryBool(req, "low_stock")
	require.NoError(t, err)
	assert.True(t, low)

	missing, err := QueryBool(req, "out_of_stock")
	require.NoError(t, err)
	assert.False(t, missing)

	status, err := QueryEnum(req, "status", enums.ParseOrderStatus)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, enums.OrderStatusApproved, *status)

	_, err = QueryEnum(req, "bad_status", enums.ParseOrderStatus)
	require.Error(t, err)

	none, err := QueryEnum(req, "role", enums.ParseRole)
	require.NoError(t, err)
	assert.Nil(t, none)

	amount, err := QueryDecimal(req, "amount")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("10.5")))

	_, err = QueryDecimal(req, "bad")
	require.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "martillo", SanitizeString("  martillo  ", 100))
	assert.Equal(t, "tala", SanitizeString("taladro", 4))
	assert.Equal(t, "", SanitizeString("   ", 10))
	assert.Equal(t, "llave inglesa", SanitizeString("llave   inglesa", 0))
	assert.Equal(t, "niño", SanitizeString("niños", 4))
}

func TestSanitizeSearchEscapesWildcards(t *testing.T) {
	assert.Equal(t, `100\% cobre`, SanitizeSearch(" 100% cobre ", 50))
	assert.Equal(t, `tornillo\_m8`, SanitizeSearch("tornillo_m8", 50))
}
