// Package cards persists card rows in the vault's SQLite database.
//
// Rows carry the number and CVV as opaque AEAD ciphertexts; this package
// never sees plaintext and never decrypts. Sealing, validation and key
// handling belong to internal/wallet/services.
//
// Listing order is newest-created first. Ties on created_at are broken by
// insertion sequence, so two cards created within the same clock tick still
// come back in a stable, reverse-insertion order.
//
// Typical usage
//
//	repo := cards.NewSQLiteRepository(db)
//	_ = repo.Insert(ctx, row)
//	for row, err := range repo.All(ctx) { ... }
//	n, _ := repo.Count(ctx)
//	deleted, _ := repo.DeleteByID(ctx, id)
package cards
