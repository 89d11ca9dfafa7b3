// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// パスの接頭辞でリクエストの転送先を決め、/v1/users 配下をusersサービスへ、
// /v1/orders 配下をordersサービスへそのまま転送する。トークンの検証は行わず、
// Authorizationヘッダーを含むリクエストヘッダーを変更せずに上流へ渡す。
package gateway
