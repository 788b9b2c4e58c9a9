// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"testing"
)

func TestNewPoolRejectsInvalidURL(t *testing.T) {
	if _, err := NewPool(context.Background(), "://not-a-url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnsureSchemaRequiresPool(t *testing.T) {
	if err := EnsureSchema(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestSchemaReadyRequiresPool(t *testing.T) {
	if err := SchemaReady(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
