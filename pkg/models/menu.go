package models

import "strings"

// MenuItem is a dish offered by a restaurant.
type MenuItem struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Category string  `json:"category,omitempty" yaml:"category"`
	Price    float64 `json:"price,omitempty" yaml:"price"`
}

// ItemRef points at a menu item by id and name.
type ItemRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the reference form of a menu item.
func (m MenuItem) Ref() ItemRef {
	return ItemRef{ID: m.ID, Name: m.Name}
}

// Purchase is one line of a user's order history.
type Purchase struct {
	ItemName string `json:"item_name" yaml:"item_name"`
	Category string `json:"category,omitempty" yaml:"category"`
	Quantity int    `json:"quantity,omitempty" yaml:"quantity"`
}

// InventoryItem is a stock reading for one ingredient or product.
type InventoryItem struct {
	Name        string `json:"name" yaml:"name"`
	Stock       int    `json:"stock" yaml:"stock"`
	RecentSales int    `json:"recent_sales" yaml:"recent_sales"`
}

// RiskLevel is the severity of a predicted stock-out.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
)

// MaxRiskPredictions caps how many items one inventory prediction flags.
const MaxRiskPredictions = 3

// ParseRiskLevel matches s case-insensitively against the known levels.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh, true
	case "medium":
		return RiskMedium, true
	default:
		return "", false
	}
}

// RiskPrediction flags an inventory item likely to run out.
type RiskPrediction struct {
	Name           string    `json:"name"`
	Risk           RiskLevel `json:"risk"`
	Reason         string    `json:"reason"`
	Recommendation string    `json:"recommendation"`
}

// Sentiment is the classification of a customer review.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)
