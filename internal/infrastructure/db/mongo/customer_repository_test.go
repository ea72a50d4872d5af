package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBalanceRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "50", "-20.50", "1234567.891"} {
		d := decimal.RequireFromString(s)
		d128, err := toDecimal128(d)
		if err != nil {
			t.Fatalf("%s: toDecimal128: %v", s, err)
		}

		doc := mongoCustomer{ID: primitive.NewObjectID(), Name: "Sam", Balance: d128, CreatedAt: 1700000000}
		c, err := doc.toDomain()
		if err != nil {
			t.Fatalf("%s: toDomain: %v", s, err)
		}
		if !c.Balance.Equal(d) {
			t.Fatalf("%s: got %s", s, c.Balance)
		}
		if c.ID != doc.ID.Hex() || !c.CreatedAt.Equal(time.Unix(1700000000, 0)) || !c.UpdatedAt.IsZero() {
			t.Fatalf("%s: unexpected mapping %+v", s, c)
		}
	}
}
