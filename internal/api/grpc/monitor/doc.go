// Package monitor exposes the geofence monitoring manager over gRPC.
//
// The service geofence.v1.MonitorService is described by hand on top of the
// protobuf well-known types, so no generated code is needed:
//
//	GetStatus(Empty)        returns Struct{state, reason, fences}
//	Start(Empty)            returns Struct{state, reason, fences}
//	Stop(Empty)             returns Struct{state, reason, fences}
//	ListFences(Empty)       returns StringValue holding the fence list JSON
//	SetFences(StringValue)  returns StringValue holding the previous list JSON
package monitor
