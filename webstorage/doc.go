// Package webstorage provides persistent storage slots shaped after the
// browser localStorage API: named slots holding one string each.
//
// [Memory] keeps slots in process memory. [SQLite] keeps them in an SQLite
// database using the ItemTable layout browsers use for localStorage, so
// slots survive restarts and can be shared by processes on one host.
//
// Both satisfy store.SlotStorage:
//
//	ls, err := webstorage.OpenSQLite(ctx, "localstorage.db")
//	if err != nil {
//	    return err
//	}
//	cfg := store.DefaultConfig()
//	cfg.Slot = "settings"
//	db, err := store.NewBrowser(ctx, ls, cfg)
package webstorage
