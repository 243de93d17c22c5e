package rental

import (
	"testing"

	"github.com/furnirent/furnirent-api/model"
	"github.com/stretchr/testify/require"
)

func placeOrderRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		Items: []OrderItemRequest{
			{FurnitureID: 7, Quantity: 2, RentalType: "DAILY"},
		},
		StartDate:     "2026-03-01",
		EndDate:       "2026-03-03",
		PaymentMethod: "CASH",
		DeliveryAddress: DeliveryAddressRequest{
			AddressLine: " 12 Lazimpat ",
			City:        "Kathmandu",
			PhoneNumber: "9800000001",
		},
		CustomerInfo: CustomerInfoRequest{Name: "Sita Rai"},
	}
}

func TestToCheckoutInput(t *testing.T) {
	req := placeOrderRequest()

	input, err := req.ToCheckoutInput(3)
	require.NoError(t, err)
	require.Equal(t, uint(3), input.UserID)
	require.Len(t, input.Items, 1)
	require.Equal(t, uint(7), input.Items[0].FurnitureID)
	require.Equal(t, model.RentalDaily, input.Items[0].RentalType)
	require.Equal(t, model.PaymentCash, input.PaymentMethod)
	require.Equal(t, "2026-03-01", input.StartDate.Format(DateLayout))
	require.Equal(t, "2026-03-03", input.EndDate.Format(DateLayout))
	// Address fields are trimmed.
	require.Equal(t, "12 Lazimpat", input.AddressLine)
}

func TestToCheckoutInput_BadDates(t *testing.T) {
	req := placeOrderRequest()
	req.StartDate = "01/03/2026"
	_, err := req.ToCheckoutInput(3)
	require.Error(t, err)

	req = placeOrderRequest()
	req.EndDate = "not-a-date"
	_, err = req.ToCheckoutInput(3)
	require.Error(t, err)
}
