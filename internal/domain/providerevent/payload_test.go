package providerevent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	_, err := ParseEnvelope([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseEnvelope([]byte(`{"id":"evt_1"}`))
	assert.Error(t, err)

	env, err := ParseEnvelope([]byte(`{"event":" payment.captured ","id":"evt_1","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, TypePaymentCaptured, env.Event)
}

func TestExternalEventID_Fallbacks(t *testing.T) {
	raw := []byte(`{"event":"x"}`)

	assert.Equal(t, "evt_body", ExternalEventID(&Envelope{ID: "evt_body"}, "evt_header", raw))
	assert.Equal(t, "evt_header", ExternalEventID(&Envelope{}, "evt_header", raw))

	hashed := ExternalEventID(&Envelope{}, "", raw)
	assert.True(t, strings.HasPrefix(hashed, "hash:"))
	assert.Equal(t, hashed, ExternalEventID(&Envelope{}, "", raw), "hash is deterministic")
}

func TestVariant_PaymentCaptured(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{
		"event":"payment.captured","id":"evt_1",
		"payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":49900,"currency":"inr",
			"notes":{"user_id":"u1","amount_units":"49900","content_type":"lab","content_id":"x"}}}}}`))
	require.NoError(t, err)

	v, err := env.Variant()
	require.NoError(t, err)

	captured, ok := v.(PaymentCaptured)
	require.True(t, ok)
	assert.Equal(t, "order_1", captured.OrderID)
	assert.Equal(t, "pay_1", captured.PaymentID)
	assert.Equal(t, int64(49900), captured.Amount)
	assert.Equal(t, "INR", captured.Currency)
	assert.Equal(t, "u1", captured.Notes["user_id"])
}

func TestVariant_EmptyNotesArray(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":1,"currency":"INR","notes":[]}}}}`))
	require.NoError(t, err)

	v, err := env.Variant()
	require.NoError(t, err)
	assert.Empty(t, v.(PaymentCaptured).Notes)
}

func TestVariant_Refund(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":100,"currency":"INR"}}}}`))
	require.NoError(t, err)

	v, err := env.Variant()
	require.NoError(t, err)
	assert.Equal(t, PaymentRefunded{Type: TypeRefundProcessed, PaymentID: "pay_1", RefundID: "rfnd_1", Amount: 100, Currency: "INR"}, v)
}

func TestVariant_SubscriptionStatusFromEventName(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"subscription.halted","payload":{"subscription":{"entity":{"id":"sub_1","plan_id":"plan_pro","current_start":1,"current_end":2}}}}`))
	require.NoError(t, err)

	v, err := env.Variant()
	require.NoError(t, err)
	sub := v.(SubscriptionChanged)
	assert.Equal(t, "halted", sub.Status)
	assert.Equal(t, "sub_1", sub.SubscriptionID)
}

func TestVariant_UnknownAndMalformed(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"invoice.issued","payload":{}}`))
	require.NoError(t, err)
	v, err := env.Variant()
	require.NoError(t, err)
	assert.Equal(t, Unknown{Type: "invoice.issued"}, v)

	env, err = ParseEnvelope([]byte(`{"event":"payment.captured","payload":{}}`))
	require.NoError(t, err)
	_, err = env.Variant()
	assert.Error(t, err)
}
