package domain

import "testing"

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"prefixed invoice number", "Dame información de la factura HBE122090", "HBE122090"},
		{"hyphenated invoice number", "revisa la FACT-12345 por favor", "FACT-12345"},
		{"factura keyword fallback", "revisa la factura E018-175709", "E018-175709"},
		{"cufe", "el CUFE es A1B2C3D4E5F6A7B8C9D0E1F2A3B4C5D6", "A1B2C3D4E5F6A7B8C9D0E1F2A3B4C5D6"},
		{"lowercase input", "dame la factura hbe122090", "hbe122090"},
		{"no identifier", "¿qué liquidaciones hay activas?", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractIdentifier(tt.text); got != tt.want {
				t.Fatalf("ExtractIdentifier(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractIdentifierPrefersInvoiceNumberOverCUFE(t *testing.T) {
	text := "factura HBE122090 con CUFE A1B2C3D4E5F6A7B8C9D0E1F2A3B4C5D6"
	if got := ExtractIdentifier(text); got != "HBE122090" {
		t.Fatalf("got %q, want the invoice number", got)
	}
}

func TestDeriveSessionKeyFromIdentifier(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"dame la factura HBE122090", "invoice_hbe122090"},
		{"dame la factura hbe122090", "invoice_hbe122090"},
		{"estado de la factura E018-175709", "invoice_e018_175709"},
	}
	for _, tt := range tests {
		if got := DeriveSessionKey(tt.question); got != tt.want {
			t.Fatalf("DeriveSessionKey(%q) = %q, want %q", tt.question, got, tt.want)
		}
	}
}

func TestDeriveSessionKeyWithoutIdentifierIsContentHashed(t *testing.T) {
	a := DeriveSessionKey("¿qué proveedores hay en Bogotá?")
	b := DeriveSessionKey("¿qué proveedores hay en Bogotá?")
	c := DeriveSessionKey("¿qué liquidaciones hay?")

	if a != b {
		t.Fatalf("same question must derive the same key: %q vs %q", a, b)
	}
	if a == c {
		t.Fatal("different questions must derive different keys")
	}
	if len(a) != len("query_")+8 {
		t.Fatalf("unexpected key shape: %q", a)
	}
}
