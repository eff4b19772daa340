package rpc

import (
	"net/http"

	"commune/core/address"
	"commune/native/meme"
)

type challengeResult struct {
	Address         string `json:"address"`
	Creator         string `json:"creator"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Prompt          string `json:"prompt"`
	RewardAmount    uint64 `json:"rewardAmount"`
	StartTime       int64  `json:"startTime"`
	EndTime         int64  `json:"endTime"`
	Winner          string `json:"winner,omitempty"`
	SubmissionCount uint32 `json:"submissionCount"`
	TotalVotes      uint64 `json:"totalVotes"`
	Leader          string `json:"leader,omitempty"`
	LeaderVotes     uint32 `json:"leaderVotes"`
}

func newChallengeResult(addr string, c *meme.Challenge) *challengeResult {
	return &challengeResult{
		Address:         addr,
		Creator:         c.Creator.String(),
		Title:           c.Title,
		Description:     c.Description,
		Prompt:          c.Prompt,
		RewardAmount:    c.RewardAmount,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		Winner:          addressOrEmpty(c.Winner),
		SubmissionCount: c.SubmissionCount,
		TotalVotes:      c.TotalVotes,
		Leader:          addressOrEmpty(c.Leader),
		LeaderVotes:     c.LeaderVotes,
	}
}

type submissionResult struct {
	Address     string `json:"address"`
	Challenge   string `json:"challenge"`
	Submitter   string `json:"submitter"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl"`
	Votes       uint32 `json:"votes"`
	SubmittedAt int64  `json:"submittedAt"`
}

func newSubmissionResult(addr string, sub *meme.Submission) *submissionResult {
	return &submissionResult{
		Address:     addr,
		Challenge:   sub.Challenge.String(),
		Submitter:   sub.Submitter.String(),
		Title:       sub.Title,
		Description: sub.Description,
		ImageURL:    sub.ImageURL,
		Votes:       sub.Votes,
		SubmittedAt: sub.SubmittedAt,
	}
}

type createChallengeParams struct {
	Creator      string `json:"creator"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Prompt       string `json:"prompt"`
	RewardAmount uint64 `json:"rewardAmount"`
	StartTime    int64  `json:"startTime"`
	EndTime      int64  `json:"endTime"`
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createChallengeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	creator, err := parseAddress("creator", params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	c, addr, err := s.node.CreateChallenge(creator, meme.ChallengeParams{
		Title:        params.Title,
		Description:  params.Description,
		Prompt:       params.Prompt,
		RewardAmount: params.RewardAmount,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
	})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newChallengeResult(addr.String(), c))
}

type submitMemeParams struct {
	Challenge   string `json:"challenge"`
	Submitter   string `json:"submitter"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl"`
}

func (s *Server) handleSubmitMeme(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params submitMemeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	challengeAddr, err := parseAddress("challenge", params.Challenge)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	submitter, err := parseAddress("submitter", params.Submitter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sub, addr, err := s.node.SubmitMeme(challengeAddr, submitter, meme.SubmissionParams{
		Title:       params.Title,
		Description: params.Description,
		ImageURL:    params.ImageURL,
	})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newSubmissionResult(addr.String(), sub))
}

type voteMemeParams struct {
	Submission string `json:"submission"`
	Voter      string `json:"voter"`
}

func (s *Server) handleVoteMeme(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params voteMemeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	submissionAddr, err := parseAddress("submission", params.Submission)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	voter, err := parseAddress("voter", params.Voter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sub, err := s.node.VoteMeme(submissionAddr, voter)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newSubmissionResult(submissionAddr.String(), sub))
}

type endChallengeParams struct {
	Challenge string `json:"challenge"`
	Caller    string `json:"caller"`
	Winner    string `json:"winner"`
}

func (s *Server) handleEndChallenge(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params endChallengeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	challengeAddr, err := parseAddress("challenge", params.Challenge)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	winner, err := parseAddress("winner", params.Winner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	c, err := s.node.EndChallenge(challengeAddr, caller, winner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newChallengeResult(challengeAddr.String(), c))
}

type getChallengeParams struct {
	Challenge string `json:"challenge"`
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getChallengeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	challengeAddr, err := parseAddress("challenge", params.Challenge)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	c, err := s.node.GetChallenge(challengeAddr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newChallengeResult(challengeAddr.String(), c))
}

type getSubmissionParams struct {
	Challenge string `json:"challenge"`
	Submitter string `json:"submitter"`
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getSubmissionParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	challengeAddr, err := parseAddress("challenge", params.Challenge)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	submitter, err := parseAddress("submitter", params.Submitter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sub, err := s.node.GetSubmission(challengeAddr, submitter)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	subAddr, _, err := address.Submission(s.node.Program(), challengeAddr, submitter)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newSubmissionResult(subAddr.String(), sub))
}
