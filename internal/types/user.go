package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles. Sellers (and admins) may create listings; everyone defaults
// to buyer.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User is an account document in the users collection.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone" json:"phone"`
	City      string             `bson:"city" json:"city"`
	Role      string             `bson:"role" json:"role"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// OTP is a short-lived password-reset code. The otps collection carries a
// TTL index on created_at so stale codes expire server-side.
type OTP struct {
	Email     string    `bson:"email" json:"email"`
	Code      string    `bson:"otp" json:"otp"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
