package config

const RelayConfigTemplate = `db_host = "{{ .DbHost }}"
db_port = {{ .DbPort }}
db_username = "{{ .DbUsername }}"
db_password = "{{ .DbPassword }}"
db_schema = "{{ .DbSchema }}"
in_memory = {{ .InMemory }}

server_port = {{ .ServerPort }}
bridge_server_url = "{{ .BridgeServerUrl }}"
token_rpc_url = "{{ .TokenRpcUrl }}"

dcr_net = "{{ .DcrNet }}"

dao_accounts = [{{ range $i, $a := .DaoAccounts }}{{ if $i }}, {{ end }}"{{ $a }}"{{ end }}]
unrestricted_relayers = [{{ range $i, $a := .UnrestrictedRelayers }}{{ if $i }}, {{ end }}"{{ $a }}"{{ end }}]

[utxo_chains]{{ range $k, $v := .UtxoChains }}
	[utxo_chains.{{ $k }}]
	chain = "{{ $v.Chain }}"
	token = "{{ $v.Token }}"
	connector = "{{ $v.Connector }}"
{{ end }}
[tokens]{{ range $k, $v := .Tokens }}
	"{{ $k }}" = "{{ $v }}"{{ end }}
`
