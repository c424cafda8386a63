package models

// ClusterGroup is one named issue cluster in a clustering response.
// Built per request and discarded after the response is returned.
type ClusterGroup struct {
	Index    int                `json:"cluster_idx"`
	Count    int                `json:"count"`
	Excerpts []string           `json:"excerpts"`
	Sources  map[SourceType]int `json:"sources"`
	Name     string             `json:"name"`
}

// ClusteringResponse wraps the ranked groups for a session.
type ClusteringResponse struct {
	SessionID     string         `json:"session_id"`
	Clusters      []ClusterGroup `json:"clusters"`
	TotalClusters int            `json:"total_clusters"`
}
