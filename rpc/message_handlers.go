package rpc

import (
	"net/http"

	"commune/native/message"
)

type messageResult struct {
	Group     string `json:"group"`
	MessageID uint64 `json:"messageId"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	TipAmount uint64 `json:"tipAmount"`
}

func newMessageResult(m *message.Message) *messageResult {
	return &messageResult{
		Group:     m.Group.String(),
		MessageID: m.MessageID,
		Sender:    m.Sender.String(),
		Content:   m.Content,
		Timestamp: m.Timestamp,
		TipAmount: m.TipAmount,
	}
}

type sendMessageParams struct {
	Group     string `json:"group"`
	Sender    string `json:"sender"`
	MessageID uint64 `json:"messageId"`
	Content   string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params sendMessageParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sender, err := parseAddress("sender", params.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	m, err := s.node.SendMessage(groupAddr, sender, params.MessageID, params.Content)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newMessageResult(m))
}

type tipMessageParams struct {
	Group     string `json:"group"`
	MessageID uint64 `json:"messageId"`
	Tipper    string `json:"tipper"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

func (s *Server) handleTipMessage(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params tipMessageParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tipper, err := parseAddress("tipper", params.Tipper)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := parseAddress("recipient", params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	m, err := s.node.TipMessage(groupAddr, params.MessageID, tipper, recipient, params.Amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newMessageResult(m))
}

type getMessageParams struct {
	Group     string `json:"group"`
	MessageID uint64 `json:"messageId"`
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getMessageParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	m, err := s.node.GetMessage(groupAddr, params.MessageID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newMessageResult(m))
}
