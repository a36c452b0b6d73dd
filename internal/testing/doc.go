// Package testing provides a deterministic marketplace environment for tests.
//
// A TestEnv wires an Engine to an in-memory ledger, static price feeds, a
// manual clock and an event recorder:
//
//	env := mtest.NewTestEnv(t)
//	alice, bob := env.Account("alice"), env.Account("bob")
//
//	env.MintItems(alice, 1, 5)
//	env.ApproveMarket(alice)
//	id := env.CreateOffer(alice, 1, 5, mtest.Units(60), 24*time.Hour)
//
//	env.Fund(bob, mtest.Ether(1))
//	_, err := env.Engine.BuyWithNativeAsset(ctx, bob.Address, id, mtest.Ether(1))
//	require.NoError(t, err)
//
// Time only moves when the test calls Advance or SetTime.
package testing
