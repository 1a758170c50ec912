// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package users stores the sample user records used to exercise sharding
// and replication. Records live in whichever collection the caller names.
package users

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListLimit caps the number of records List returns.
const ListLimit = 1000

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("user not found")

	// ErrInvalid is returned for a record that is missing a required field.
	ErrInvalid = errors.New("invalid user")
)

// User is a single user record.
type User struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Age  int                `json:"age" bson:"age"`
	Name string             `json:"name" bson:"name"`
}

// Input is the body of a create request. Both fields are required.
type Input struct {
	Age  *int    `json:"age"`
	Name *string `json:"name"`
}

// Validate returns the User described by in.
func (in Input) Validate() (User, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return User{}, errors.Wrap(ErrInvalid, "name is required")
	}
	if in.Age == nil {
		return User{}, errors.Wrap(ErrInvalid, "age is required")
	}
	if *in.Age < 0 {
		return User{}, errors.Wrapf(ErrInvalid, "age %d is negative", *in.Age)
	}
	return User{Name: *in.Name, Age: *in.Age}, nil
}

// Store reads and writes user records in a database.
type Store struct {
	db *mongo.Database
}

// NewStore returns a Store over db.
func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

// List returns up to ListLimit records in natural order.
func (s *Store) List(ctx context.Context, collection string) ([]User, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{}, options.Find().SetLimit(ListLimit))
	if err != nil {
		return nil, errors.Wrapf(err, "listing users in %s", collection)
	}

	out := make([]User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "decoding users in %s", collection)
	}
	return out, nil
}

// FindByName returns the first record named name, or ErrNotFound.
func (s *Store) FindByName(ctx context.Context, collection, name string) (User, error) {
	var u User
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "name", Value: name}}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, errors.Wrapf(err, "finding user %q in %s", name, collection)
	}
	return u, nil
}

// Insert stores u under a new id and returns the record as stored.
func (s *Store) Insert(ctx context.Context, collection string, u User) (User, error) {
	coll := s.db.Collection(collection)

	u.ID = primitive.NilObjectID
	res, err := coll.InsertOne(ctx, u)
	if err != nil {
		return User{}, errors.Wrapf(err, "inserting user into %s", collection)
	}

	var created User
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: res.InsertedID}}).Decode(&created); err != nil {
		return User{}, errors.Wrapf(err, "reading back user %v", res.InsertedID)
	}
	return created, nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s", collection)
	}
	return n, nil
}
