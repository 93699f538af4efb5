package conversation

import "time"

// testAsyncTimeout bounds how long tests wait for background exports.
const testAsyncTimeout = 5 * time.Second

// testTimestamp is the base time of generated test messages.
var testTimestamp = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
