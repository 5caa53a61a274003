package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in   string
		want ShipStatus
	}{
		{"On Transit", ShipStatusShipped},
		{"Picked by courier", ShipStatusShipped},
		{"OUT FOR DELIVERY", ShipStatusShipped},
		{"ON PROCESS", ShipStatusShipped},
		{"Delivered to receiver, POD signed", ShipStatusDelivered},
		{"delivered", ShipStatusDelivered},
		{"POD", ShipStatusDelivered},
		{"Manifest received", ShipStatusPacked},
		{"PACKING", ShipStatusPacked},
		{"", ShipStatusPending},
		{"unknown nonsense", ShipStatusPending},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeStatus(c.in), "input=%q", c.in)
	}
}

// 複数カテゴリに当たる文字列は先勝ち（DELIVERED優先）。
func TestNormalizeStatusPrecedence(t *testing.T) {
	assert.Equal(t, ShipStatusDelivered, NormalizeStatus("ON TRANSIT, POD RECEIVED"))
	assert.Equal(t, ShipStatusShipped, NormalizeStatus("PICKED AND PACKED"))
}

func TestNormalizeCourier(t *testing.T) {
	cases := []struct {
		in   string
		want CourierCode
		ok   bool
	}{
		{"jne", CourierJNE, true},
		{"JNE", CourierJNE, true},
		{"J&T Express", CourierJNT, true},
		{"SiCepat", CourierSiCepat, true},
		{"RPX / REX", CourierREX, true},
		{"POS Indonesia", CourierPOS, true},
		{"Ninja Xpress", CourierNinja, true},
		{"  tiki  ", CourierTIKI, true},
		{"GoSend", "", false},
		{"", "", false},
	}

	for _, c := range cases {
		got, ok := NormalizeCourier(c.in)
		assert.Equal(t, c.ok, ok, "input=%q", c.in)
		assert.Equal(t, c.want, got, "input=%q", c.in)
	}
}

func TestIsKnownCourierCode(t *testing.T) {
	assert.True(t, IsKnownCourierCode("jnt"))
	assert.True(t, IsKnownCourierCode(" SICEPAT "))
	assert.False(t, IsKnownCourierCode("J&T Express"))
	assert.False(t, IsKnownCourierCode(""))
}
