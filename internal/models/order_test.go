package models

import "testing"

func validRequest() *OrderRequest {
	return &OrderRequest{
		CustomerID: "cust-42",
		Items: []LineItem{
			{BookID: "978-1491904244", Quantity: 2},
		},
		ShippingAddress: ShippingAddress{
			Street:     "1 Main St",
			City:       "Springfield",
			Country:    "USA",
			PostalCode: "12345",
		},
		PaymentMethod: "CREDIT_CARD",
	}
}

func TestOrderRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OrderRequest)
		wantErr bool
	}{
		{
			name:    "valid request",
			mutate:  func(r *OrderRequest) {},
			wantErr: false,
		},
		{
			name:    "missing customer id",
			mutate:  func(r *OrderRequest) { r.CustomerID = "" },
			wantErr: true,
		},
		{
			name:    "no items",
			mutate:  func(r *OrderRequest) { r.Items = nil },
			wantErr: true,
		},
		{
			name:    "zero quantity",
			mutate:  func(r *OrderRequest) { r.Items[0].Quantity = 0 },
			wantErr: true,
		},
		{
			name:    "negative quantity",
			mutate:  func(r *OrderRequest) { r.Items[0].Quantity = -1 },
			wantErr: true,
		},
		{
			name:    "empty book id",
			mutate:  func(r *OrderRequest) { r.Items[0].BookID = "" },
			wantErr: true,
		},
		{
			name:    "missing street",
			mutate:  func(r *OrderRequest) { r.ShippingAddress.Street = "" },
			wantErr: true,
		},
		{
			name:    "missing city",
			mutate:  func(r *OrderRequest) { r.ShippingAddress.City = "" },
			wantErr: true,
		},
		{
			name:    "missing country",
			mutate:  func(r *OrderRequest) { r.ShippingAddress.Country = "" },
			wantErr: true,
		},
		{
			name:    "missing postal code",
			mutate:  func(r *OrderRequest) { r.ShippingAddress.PostalCode = "" },
			wantErr: true,
		},
		{
			name:    "missing payment method",
			mutate:  func(r *OrderRequest) { r.PaymentMethod = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
