package posn

import "time"

// testAsyncTimeout bounds waits on background saves and exports.
const testAsyncTimeout = 5 * time.Second

// testPassphraseEnv is the environment variable used by encryption tests.
const testPassphraseEnv = "POSN_TEST_PASSPHRASE"
