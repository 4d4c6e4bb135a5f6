package menu

import (
	"errors"
	"fmt"
)

// ErrDelivery marks failures talking to Telegram while serving a menu action.
var ErrDelivery = errors.New("menu: delivery failed")

// Delivery operations.
const (
	OpAck  = "ack"
	OpEdit = "edit"
	OpSend = "send"
)

// DeliveryError reports which Telegram call failed.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("menu: %s failed: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Is matches ErrDelivery so callers need not know the concrete type.
func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

// Code feeds the err_code field of handler logs.
func (e *DeliveryError) Code() string { return "DELIVERY_" + e.Op }
