// Package testutil provides shared fixtures for package tests.
package testutil

import "reflect"

// Customer is the outer entity of the fixture data set.
type Customer struct {
	ID     int32
	Name   string
	City   string
	Age    int32
	Score  *float64
	Orders []Order
}

// Order belongs to a customer through CustomerID.
type Order struct {
	ID         int32
	CustomerID int32
	Product    string
	Amount     float64
	Quantity   int32
}

// Fixture types, for building expressions.
var (
	CustomerType = reflect.TypeFor[Customer]()
	OrderType    = reflect.TypeFor[Order]()
)

func score(v float64) *float64 { return &v }

// Orders returns the fixture orders in ID order. Every call returns fresh
// values, so tests may mutate them.
func Orders() []Order {
	return []Order{
		{ID: 1, CustomerID: 1, Product: "Widget", Amount: 25.5, Quantity: 2},
		{ID: 2, CustomerID: 1, Product: "Gadget", Amount: 10, Quantity: 1},
		{ID: 3, CustomerID: 2, Product: "Widget", Amount: 25.5, Quantity: 1},
		{ID: 4, CustomerID: 3, Product: "Gizmo", Amount: 99.9, Quantity: 3},
		{ID: 5, CustomerID: 3, Product: "Widget", Amount: 25.5, Quantity: 4},
	}
}

// Customers returns the fixture customers in ID order, each with its orders
// attached. Dan has no orders and Bob has no score.
//
//	ID  Name   City    Age  Score  Orders
//	1   Alice  Paris   34   4.5    1, 2
//	2   Bob    London  27   -      3
//	3   Carol  Paris   41   3.0    4, 5
//	4   Dan    Berlin  19   5.0    -
func Customers() []Customer {
	customers := []Customer{
		{ID: 1, Name: "Alice", City: "Paris", Age: 34, Score: score(4.5)},
		{ID: 2, Name: "Bob", City: "London", Age: 27},
		{ID: 3, Name: "Carol", City: "Paris", Age: 41, Score: score(3.0)},
		{ID: 4, Name: "Dan", City: "Berlin", Age: 19, Score: score(5.0)},
	}
	for _, o := range Orders() {
		c := &customers[o.CustomerID-1]
		c.Orders = append(c.Orders, o)
	}
	return customers
}
