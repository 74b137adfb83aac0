// Package client implements the orchestra-ctl commands: it dials the server,
// performs one call with optional retries and prints the JSON response.
package client
