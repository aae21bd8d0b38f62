package db

import (
	"go.mongodb.org/mongo-driver/bson"
)

// FilterBuilder helps build MongoDB filters fluently
type FilterBuilder struct {
	filter bson.M
}

// NewFilter creates a new FilterBuilder
func NewFilter() *FilterBuilder {
	return &FilterBuilder{filter: bson.M{}}
}

// Eq adds an equality condition
func (f *FilterBuilder) Eq(field string, value interface{}) *FilterBuilder {
	f.filter[field] = value
	return f
}

// Ne adds a not-equal condition
func (f *FilterBuilder) Ne(field string, value interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$ne": value}
	return f
}

// Lte adds a less-than-or-equal condition
func (f *FilterBuilder) Lte(field string, value interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$lte": value}
	return f
}

// ExactSet matches an array field holding exactly the given values in stored order
func (f *FilterBuilder) ExactSet(field string, values []string) *FilterBuilder {
	f.filter[field] = bson.M{"$all": values, "$size": len(values)}
	return f
}

// NotElemMatch matches documents whose array field has no element matching cond
func (f *FilterBuilder) NotElemMatch(field string, cond bson.M) *FilterBuilder {
	f.filter[field] = bson.M{"$not": bson.M{"$elemMatch": cond}}
	return f
}

// Build returns the final bson.M filter
func (f *FilterBuilder) Build() bson.M {
	return f.filter
}
