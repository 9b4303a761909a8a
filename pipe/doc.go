// Package pipe drives records from a source through an encoder to a publisher.
//
// A RowPipe validates everything before the first row is read, then keeps at
// most maxInflight messages outstanding. Every per record failure is either
// returned or logged and counted, never dropped silently.
package pipe
