package yxc

// ServerInfo is the body of dist/setServerInfo. An empty GroupID clears the
// server side of a group.
type ServerInfo struct {
	GroupID    string   `json:"group_id"`
	Zone       string   `json:"zone,omitempty"`
	Type       string   `json:"type,omitempty"`
	ClientList []string `json:"client_list,omitempty"`
}

// ClientInfo is the body of dist/setClientInfo.
type ClientInfo struct {
	GroupID         string   `json:"group_id"`
	Zone            []string `json:"zone,omitempty"`
	ServerIPAddress string   `json:"server_ip_address,omitempty"`
}

func GetDistributionInfo() Request { return get("dist/getDistributionInfo", nil) }
func StopDistribution() Request    { return get("dist/stopDistribution", nil) }

func SetServerInfo(info ServerInfo) (Request, error) {
	if info.Zone != "" {
		if err := checkZone(info.Zone); err != nil {
			return Request{}, err
		}
	}
	if info.Type != "" {
		if err := oneOf("type", info.Type, []string{"add", "remove"}); err != nil {
			return Request{}, err
		}
	}
	return post("dist/setServerInfo", info), nil
}

func SetClientInfo(info ClientInfo) (Request, error) {
	for _, z := range info.Zone {
		if err := checkZone(z); err != nil {
			return Request{}, err
		}
	}
	return post("dist/setClientInfo", info), nil
}

func StartDistribution(num int) Request {
	return get("dist/startDistribution", query{"num", itoa(num)})
}

func SetGroupName(name string) Request {
	return post("dist/setGroupName", map[string]string{"name": name})
}
