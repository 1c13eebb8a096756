// Package field provides the column type model of tabula.
//
// A column type is one of three kinds:
//
//	field.TypeInt                 // scalar
//	field.Array(field.TypeText)   // collection, rendered as TEXT[]
//	field.JSON(map[string]any{})  // JSON, rendered as JSONB on Postgres
//
// # Scalar Types
//
//	field.TypeBigInt       // BIGINT                    int64
//	field.TypeBool         // BOOLEAN                   bool
//	field.TypeVarchar      // VARCHAR                   string
//	field.TypeDate         // DATE                      string (YYYY-MM-DD)
//	field.TypeInt          // INTEGER                   int32
//	field.TypeText         // TEXT                      string
//	field.TypeTimestamp    // TIMESTAMP                 time.Time
//	field.TypeTimestampTZ  // TIMESTAMP WITH TIME ZONE  time.Time
//	field.TypeUUID         // UUID                      string
//
// SQLType renders a type token for a dialect and GoType returns the host type
// values of the column decode to. The JSON sample value only feeds GoType.
package field
