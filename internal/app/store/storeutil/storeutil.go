// Package storeutil holds the cursor plumbing shared by the stores.
package storeutil

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// All runs Find and decodes every document into T.
func All[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// One runs FindOne and decodes into T. Not found is mongo.ErrNoDocuments.
func One[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts ...*options.FindOneOptions) (T, error) {
	var v T
	err := c.FindOne(ctx, filter, opts...).Decode(&v)
	return v, err
}

// Delete removes a document by filter and returns whether one was removed.
func Delete(ctx context.Context, c *mongo.Collection, filter bson.M) (bool, error) {
	res, err := c.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
