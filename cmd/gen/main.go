// Command gen generates type-safe GORM query helpers for the persistence models.
//
//	go run ./cmd/gen
package main

import (
	"accounts/internal/infra/persistence/model"

	"gorm.io/gen"
)

func main() {
	g := gen.NewGenerator(gen.Config{
		OutPath:       "./internal/infra/persistence/gormstore/query",
		Mode:          gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable: false,
	})

	g.ApplyBasic(model.UserModel{})

	g.Execute()
}
