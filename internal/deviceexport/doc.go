// Package deviceexport writes the devices registered in a Remote Manager account to a CSV file.
package deviceexport
