package server

import "github.com/modbuscore/gomodbus/pdu"

// Authorization is the result of an authorization check.
type Authorization int

const (
	Allow Authorization = iota
	Deny
)

// AuthorizationHandler gates every request past a role check before it
// reaches a RequestHandler. Plain TCP and RTU sessions use AllowAllHandler;
// TLS sessions authenticated with a client certificate can plug in a handler
// keyed on the certificate's role (spec.md §7 Modbus Security addition).
// The interface has no default methods: AllowAllHandler allows everything,
// DenyAllHandler denies everything, and ReadOnlyHandler allows only reads.
type AuthorizationHandler interface {
	ReadCoils(unitId pdu.UnitId, r pdu.AddressRange, role string) Authorization
	ReadDiscreteInputs(unitId pdu.UnitId, r pdu.AddressRange, role string) Authorization
	ReadHoldingRegisters(unitId pdu.UnitId, r pdu.AddressRange, role string) Authorization
	ReadInputRegisters(unitId pdu.UnitId, r pdu.AddressRange, role string) Authorization
	WriteSingleCoil(unitId pdu.UnitId, index uint16, role string) Authorization
	WriteSingleRegister(unitId pdu.UnitId, index uint16, role string) Authorization
	WriteMultipleCoils(unitId pdu.UnitId, r pdu.AddressRange, role string) Authorization
	WriteMultipleRegisters(unitId pdu.UnitId, r pdu.AddressRange, role string) Authorization
	ReadDeviceIdentification(unitId pdu.UnitId, role string) Authorization
}

// AllowAllHandler authorizes every request. It is the default for TCP and
// RTU sessions, which have no notion of an authenticated role.
type AllowAllHandler struct{}

func (AllowAllHandler) ReadCoils(pdu.UnitId, pdu.AddressRange, string) Authorization { return Allow }
func (AllowAllHandler) ReadDiscreteInputs(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (AllowAllHandler) ReadHoldingRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (AllowAllHandler) ReadInputRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (AllowAllHandler) WriteSingleCoil(pdu.UnitId, uint16, string) Authorization     { return Allow }
func (AllowAllHandler) WriteSingleRegister(pdu.UnitId, uint16, string) Authorization { return Allow }
func (AllowAllHandler) WriteMultipleCoils(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (AllowAllHandler) WriteMultipleRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (AllowAllHandler) ReadDeviceIdentification(pdu.UnitId, string) Authorization { return Allow }

// ReadOnlyHandler authorizes reads for any role and denies every write,
// mirroring the original's ReadOnlyAuthorizationHandler.
type ReadOnlyHandler struct{}

func (ReadOnlyHandler) ReadCoils(pdu.UnitId, pdu.AddressRange, string) Authorization { return Allow }
func (ReadOnlyHandler) ReadDiscreteInputs(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (ReadOnlyHandler) ReadHoldingRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (ReadOnlyHandler) ReadInputRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Allow
}
func (ReadOnlyHandler) WriteSingleCoil(pdu.UnitId, uint16, string) Authorization     { return Deny }
func (ReadOnlyHandler) WriteSingleRegister(pdu.UnitId, uint16, string) Authorization { return Deny }
func (ReadOnlyHandler) WriteMultipleCoils(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Deny
}
func (ReadOnlyHandler) WriteMultipleRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Deny
}
func (ReadOnlyHandler) ReadDeviceIdentification(pdu.UnitId, string) Authorization { return Allow }

// DenyAllHandler denies every request. Useful as a safe default while a real
// authorization policy is still being wired up.
type DenyAllHandler struct{}

func (DenyAllHandler) ReadCoils(pdu.UnitId, pdu.AddressRange, string) Authorization { return Deny }
func (DenyAllHandler) ReadDiscreteInputs(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Deny
}
func (DenyAllHandler) ReadHoldingRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Deny
}
func (DenyAllHandler) ReadInputRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Deny
}
func (DenyAllHandler) WriteSingleCoil(pdu.UnitId, uint16, string) Authorization     { return Deny }
func (DenyAllHandler) WriteSingleRegister(pdu.UnitId, uint16, string) Authorization { return Deny }
func (DenyAllHandler) WriteMultipleCoils(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Deny
}
func (DenyAllHandler) WriteMultipleRegisters(pdu.UnitId, pdu.AddressRange, string) Authorization {
	return Deny
}
func (DenyAllHandler) ReadDeviceIdentification(pdu.UnitId, string) Authorization { return Deny }

// authorize consults auth for the given request, returning Allow for
// function codes the authorization model does not cover (custom function
// codes carry no standard notion of role-based access).
func authorize(auth AuthorizationHandler, unitId pdu.UnitId, req pdu.Request, role string) Authorization {
	switch r := req.(type) {
	case *pdu.ReadRequest:
		switch r.FunctionCode() {
		case pdu.ReadCoils:
			return auth.ReadCoils(unitId, r.Range, role)
		case pdu.ReadDiscreteInputs:
			return auth.ReadDiscreteInputs(unitId, r.Range, role)
		case pdu.ReadHoldingRegisters:
			return auth.ReadHoldingRegisters(unitId, r.Range, role)
		default:
			return auth.ReadInputRegisters(unitId, r.Range, role)
		}
	case *pdu.WriteSingleCoilRequest:
		return auth.WriteSingleCoil(unitId, r.Offset(), role)
	case *pdu.WriteSingleRegisterRequest:
		return auth.WriteSingleRegister(unitId, r.Offset(), role)
	case *pdu.WriteMultipleCoilsRequest:
		return auth.WriteMultipleCoils(unitId, r.Write.Range(), role)
	case *pdu.WriteMultipleRegistersRequest:
		return auth.WriteMultipleRegisters(unitId, r.Write.Range(), role)
	case *pdu.DeviceIdentificationRequest:
		return auth.ReadDeviceIdentification(unitId, role)
	default:
		return Allow
	}
}
