package payment

import (
	"errors"
	"testing"
	"time"
)

const successCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 4800},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "TransactionDate", "Value": 20191219102115},
					{"Name": "PhoneNumber", "Value": 254712345678}
				]
			}
		}
	}
}`

const failureCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 1032,
			"ResultDesc": "Request cancelled by user."
		}
	}
}`

func TestParseCallback_Success(t *testing.T) {
	res, err := ParseCallback([]byte(successCallback))
	if err != nil {
		t.Fatalf("ParseCallback error: %v", err)
	}

	if !res.Success() {
		t.Fatalf("expected success, result code = %d", res.ResultCode)
	}
	if res.CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Fatalf("checkout request id = %q", res.CheckoutRequestID)
	}
	if res.Amount == nil || *res.Amount != 4800 {
		t.Fatalf("amount = %v, want 4800", res.Amount)
	}
	if res.ReceiptNumber != "NLJ7RT61SV" {
		t.Fatalf("receipt number = %q", res.ReceiptNumber)
	}
	if res.PayerPhone != "254712345678" {
		t.Fatalf("payer phone = %q", res.PayerPhone)
	}

	wantPaidAt := time.Date(2019, 12, 19, 10, 21, 15, 0, time.UTC)
	if res.PaidAt == nil || !res.PaidAt.Equal(wantPaidAt) {
		t.Fatalf("paid at = %v, want %v", res.PaidAt, wantPaidAt)
	}
}

func TestParseCallback_Failure(t *testing.T) {
	res, err := ParseCallback([]byte(failureCallback))
	if err != nil {
		t.Fatalf("ParseCallback error: %v", err)
	}

	if res.Success() {
		t.Fatalf("expected failure result")
	}
	if res.ResultCode != 1032 {
		t.Fatalf("result code = %d, want 1032", res.ResultCode)
	}
	if res.Amount != nil || res.ReceiptNumber != "" || res.PaidAt != nil {
		t.Fatalf("receipt fields must stay empty on failure: %+v", res)
	}
}

func TestParseCallback_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `deliver me`},
		{name: "empty object", raw: `{}`},
		{name: "empty body", raw: `{"Body":{}}`},
		{name: "callback without fields", raw: `{"Body":{"stkCallback":{}}}`},
		{name: "missing result code", raw: `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1"}}}`},
		{name: "missing checkout id", raw: `{"Body":{"stkCallback":{"ResultCode":0}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseCallback([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedCallback) {
				t.Fatalf("error = %v, want ErrMalformedCallback", err)
			}
			if res != nil {
				t.Fatalf("expected nil result, got %+v", res)
			}
		})
	}
}

func TestParseCallback_UnexpectedMetadataShapes(t *testing.T) {
	raw := `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"ResultDesc": "ok",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": "4800"},
						{"Name": "MpesaReceiptNumber", "Value": 123},
						{"Name": "TransactionDate", "Value": "garbage"},
						{"Name": "Unknown", "Value": null}
					]
				}
			}
		}
	}`

	res, err := ParseCallback([]byte(raw))
	if err != nil {
		t.Fatalf("ParseCallback error: %v", err)
	}

	// Строковая сумма распознаётся, мусорные значения пропускаются без ошибок
	if res.Amount == nil || *res.Amount != 4800 {
		t.Fatalf("amount = %v, want 4800", res.Amount)
	}
	if res.ReceiptNumber != "" {
		t.Fatalf("receipt number = %q, want empty", res.ReceiptNumber)
	}
	if res.PaidAt != nil {
		t.Fatalf("paid at = %v, want nil", res.PaidAt)
	}
}
