// Package rabbitmq republishes the normalized monitor event stream to a
// RabbitMQ fanout exchange as JSON messages.
package rabbitmq
