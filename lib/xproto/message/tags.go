/*
Copyright 2024 Cadre Data, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package message

import "fmt"

// ClientType is the frame type tag of a client-to-server message.
type ClientType byte

// Client message type tags (Mysqlx.ClientMessages.Type).
const (
	ClientCapabilitiesGet ClientType = 1
	ClientCapabilitiesSet ClientType = 2
	ClientConnClose       ClientType = 3
	ClientAuthStart       ClientType = 4
	ClientAuthContinue    ClientType = 5
	ClientSessionReset    ClientType = 6
	ClientSessionClose    ClientType = 7
	ClientStmtExecute     ClientType = 12
	ClientCompression     ClientType = 46
)

// String returns the protocol name of the client message type.
func (t ClientType) String() string {
	switch t {
	case ClientCapabilitiesGet:
		return "CON_CAPABILITIES_GET"
	case ClientCapabilitiesSet:
		return "CON_CAPABILITIES_SET"
	case ClientConnClose:
		return "CON_CLOSE"
	case ClientAuthStart:
		return "SESS_AUTHENTICATE_START"
	case ClientAuthContinue:
		return "SESS_AUTHENTICATE_CONTINUE"
	case ClientSessionReset:
		return "SESS_RESET"
	case ClientSessionClose:
		return "SESS_CLOSE"
	case ClientStmtExecute:
		return "SQL_STMT_EXECUTE"
	case ClientCompression:
		return "COMPRESSION"
	}
	return fmt.Sprintf("CLIENT(%d)", byte(t))
}

// ServerType is the frame type tag of a server-to-client message.
type ServerType byte

// Server message type tags (Mysqlx.ServerMessages.Type).
const (
	ServerOk                      ServerType = 0
	ServerError                   ServerType = 1
	ServerCapabilities            ServerType = 2
	ServerAuthContinue            ServerType = 3
	ServerAuthOk                  ServerType = 4
	ServerNotice                  ServerType = 11
	ServerColumnMetaData          ServerType = 12
	ServerRow                     ServerType = 13
	ServerFetchDone               ServerType = 14
	ServerFetchSuspended          ServerType = 15
	ServerFetchDoneMoreResultsets ServerType = 16
	ServerStmtExecuteOk           ServerType = 17
	ServerFetchDoneMoreOutParams  ServerType = 18
	ServerCompression             ServerType = 19
)

// String returns the protocol name of the server message type.
func (t ServerType) String() string {
	switch t {
	case ServerOk:
		return "OK"
	case ServerError:
		return "ERROR"
	case ServerCapabilities:
		return "CONN_CAPABILITIES"
	case ServerAuthContinue:
		return "SESS_AUTHENTICATE_CONTINUE"
	case ServerAuthOk:
		return "SESS_AUTHENTICATE_OK"
	case ServerNotice:
		return "NOTICE"
	case ServerColumnMetaData:
		return "RESULTSET_COLUMN_META_DATA"
	case ServerRow:
		return "RESULTSET_ROW"
	case ServerFetchDone:
		return "RESULTSET_FETCH_DONE"
	case ServerFetchSuspended:
		return "RESULTSET_FETCH_SUSPENDED"
	case ServerFetchDoneMoreResultsets:
		return "RESULTSET_FETCH_DONE_MORE_RESULTSETS"
	case ServerStmtExecuteOk:
		return "SQL_STMT_EXECUTE_OK"
	case ServerFetchDoneMoreOutParams:
		return "RESULTSET_FETCH_DONE_MORE_OUT_PARAMS"
	case ServerCompression:
		return "COMPRESSION"
	}
	return fmt.Sprintf("SERVER(%d)", byte(t))
}
