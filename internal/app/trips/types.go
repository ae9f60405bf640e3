package trips

import "github.com/shopspring/decimal"

type CreateTripInput struct {
	Title         string
	TotalSpots    int
	RequiredSpots int
	// Price is the total accommodation cost for the whole trip.
	Price decimal.Decimal
}
