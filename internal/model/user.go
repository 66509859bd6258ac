// Package model defines domain entities for the application.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the root document of the identity store. Workspaces and
// transactions are embedded sub-documents; the whole tree belongs to
// exactly one user.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GoogleID     string             `bson:"google_id" json:"-"`
	Email        string             `bson:"email" json:"email"`
	DisplayName  string             `bson:"display_name" json:"display_name"`
	ProfileImage string             `bson:"profile_image,omitempty" json:"profile_image,omitempty"`
	HomeImage    string             `bson:"home_image,omitempty" json:"home_image,omitempty"`
	Bio          string             `bson:"bio,omitempty" json:"bio,omitempty"`
	IsAdmin      bool               `bson:"is_admin" json:"is_admin"`
	AccessToken  string             `bson:"access_token,omitempty" json:"-"`
	RefreshToken string             `bson:"refresh_token,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	Workspaces   []Workspace        `bson:"workspaces" json:"workspaces"`
	Transactions []Transaction      `bson:"transactions" json:"-"`
}

// Workspace groups lists under a user-chosen name.
// Names are unique within a user, not globally.
type Workspace struct {
	Name      string    `bson:"name" json:"name"`
	ImageURL  string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Lists     []List    `bson:"lists" json:"lists"`
}

// List names a mail filter inside a workspace. The matching messages are
// fetched from the mail provider on demand and never persisted.
type List struct {
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Subscription plans offered at checkout.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// IsValidPlan reports whether plan is a known subscription plan.
func IsValidPlan(plan string) bool {
	return plan == PlanMonthly || plan == PlanYearly
}

// Transaction records a completed checkout. Append-only; the billing
// service rejects a second transaction for the same user.
type Transaction struct {
	ID              string    `bson:"id" json:"id"`
	Amount          float64   `bson:"amount" json:"amount"`
	Status          string    `bson:"status" json:"status"`
	Plan            string    `bson:"plan" json:"plan"`
	OccurredAt      time.Time `bson:"occurred_at" json:"occurred_at"`
	SubscriptionEnd time.Time `bson:"subscription_end" json:"subscription_end"`
}

// HasPaid reports whether the user has any recorded transaction.
func (u *User) HasPaid() bool {
	return len(u.Transactions) > 0
}

// FindWorkspace returns the workspace with the given name, or nil.
// Workspace collections are small (one user's), so a linear scan is fine.
func (u *User) FindWorkspace(name string) *Workspace {
	for i := range u.Workspaces {
		if u.Workspaces[i].Name == name {
			return &u.Workspaces[i]
		}
	}
	return nil
}

// FindList returns the list with the given name, or nil.
func (w *Workspace) FindList(name string) *List {
	for i := range w.Lists {
		if w.Lists[i].Name == name {
			return &w.Lists[i]
		}
	}
	return nil
}
