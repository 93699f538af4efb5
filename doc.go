// Package posn implements the persistence and trust-state core of a
// peer-to-peer social messaging client.
//
// It tracks accepted friends and pending friend requests, issues a fresh
// symmetric key whenever a relationship is accepted, persists the friend list
// to a single application file, and exports conversation history to
// caller-chosen files. This package provides the facade that composes the
// subsystems: key issuance (crypto), the friend store (friend), the
// application file codec (appfile) and the conversation exporter
// (conversation).
//
// # Getting Started
//
//	options := posn.NewOptions()
//	options.DataDir = "/var/lib/posn"
//
//	client, err := posn.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.RequestFriend("alice", "Alice", "hi!"); err != nil {
//	    log.Fatal(err)
//	}
//	f, err := client.AcceptPending("alice", friend.StatusAccepted)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("accepted", f.ID, f.Fingerprint())
//
//	if err := client.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Threading
//
// A Client has a single writer. Mutating methods must not be called
// concurrently. SaveAsync and ExportConversationsAsync take their snapshot on
// the calling goroutine and only write files in the background, so the caller
// may keep mutating the client while they run.
//
// # Errors
//
// Persistence and key failures are classified by package failure:
//
//	if errors.Is(err, failure.ErrParse) {
//	    // the friend list on disk is damaged; nothing was loaded
//	}
package posn
