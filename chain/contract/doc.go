/*
Package contract binds the token and faucet contracts to wallet sessions and invokes them
independently of the chain family.

A [Factory] creates a [Handle] from the address currently resolved for a role and a session. An
[Invoker] validates the method and arguments of a call locally, dispatches it through the
session's backend and normalizes the result:

	h, err := factory.CreateHandle(ctx, chain.RoleFaucet, session)
	if err != nil {
		return err
	}
	pending, err := invoker.Send(ctx, h, "requestFlash", amount)
	if err != nil {
		return err
	}
	outcome, err := pending.AwaitOutcome(ctx)

Handles are bound to the account, node and address generation they were created with. Once any
of them changes the invoker rejects the handle with a [chain.KindStaleHandle] error; create a new
handle per logical operation.
*/
package contract
