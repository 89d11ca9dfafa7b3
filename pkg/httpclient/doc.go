// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// Gatewayが上流サービスのヘルスチェックやリクエスト転送を行う際に使用する。
package httpclient
