// Package friend implements the friend trust-state model for posn: accepted
// friends, each holding the symmetric key issued when trust was established,
// and the ordered list of pending friend requests.
//
// # Store
//
// Store keeps accepted friends in a map keyed by ID and pending requests in
// insertion order. An ID is never present in both collections.
//
//	store := friend.NewStore(nil) // nil issuer: crypto/rand
//
//	if err := store.AddPendingRequest(friend.RequestedFriend{ID: "bob", Name: "Bob"}); err != nil {
//	    // ErrDuplicateRequest, ErrAlreadyFriend or ErrInvalidID
//	}
//
//	f, err := store.AcceptFriend(friend.RequestedFriend{ID: "bob", Name: "Bob"}, friend.StatusAccepted)
//	if err != nil {
//	    // errors.Is(err, failure.ErrCrypto): no key, store unchanged
//	}
//	fmt.Println(f.Fingerprint())
//
// # Transfer
//
// Fields and StoreFromFields convert a Store to and from plain field structs.
// MarshalBinary and UnmarshalBinary carry those fields as deterministic CBOR
// for handing a store to another component.
//
// # Thread Safety
//
// Store is not safe for concurrent use. It is owned by one logical writer at a
// time; callers confine it to one goroutine or synchronize externally.
package friend
