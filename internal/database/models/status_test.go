package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus("CONFIRMED")
	assert.True(t, ok)
	assert.Equal(t, OrderConfirmed, status)

	_, ok = ParseOrderStatus("confirmed")
	assert.False(t, ok)

	_, ok = ParseOrderStatus("CONFIRMADO")
	assert.False(t, ok)
}

func TestParseDeliveryStatus(t *testing.T) {
	status, ok := ParseDeliveryStatus("IN_TRANSIT")
	assert.True(t, ok)
	assert.Equal(t, DeliveryInTransit, status)

	_, ok = ParseDeliveryStatus("")
	assert.False(t, ok)
}

func TestParseMaquilaStatus(t *testing.T) {
	status, ok := ParseMaquilaStatus("EN_PROCESS")
	assert.True(t, ok)
	assert.Equal(t, MaquilaEnProcess, status)

	_, ok = ParseMaquilaStatus("DONE")
	assert.False(t, ok)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleSales))
	assert.True(t, ValidRole(RoleMaquila))
	assert.False(t, ValidRole("GERENTE"))
	assert.False(t, ValidRole(""))
}
