// Package speaker renders the square wave on the host sound card through oto.
package speaker
