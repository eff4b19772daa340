package meme

import (
	"errors"
	"time"

	"commune/core/address"
	"commune/core/events"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

// State is the slice of batch functionality the meme engine needs.
type State interface {
	Get(addr crypto.Address) (*types.Account, bool, error)
	Create(addr crypto.Address, owner string) (*types.Account, error)
	Put(addr crypto.Address, acc *types.Account) error
	Transfer(from, to crypto.Address, amount uint64) error
}

// Engine runs meme challenges: timed contests where submissions collect
// votes and the leading entry takes the prize once the window closes.
type Engine struct {
	program crypto.Address
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a meme engine for the given program address.
func NewEngine(program crypto.Address) *Engine {
	return &Engine{
		program: program,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(memeEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// ChallengeParams collects the settings supplied when opening a challenge.
// StartTime must be in the future, so contests can be scheduled ahead.
type ChallengeParams struct {
	Title        string
	Description  string
	Prompt       string
	RewardAmount uint64
	StartTime    int64
	EndTime      int64
}

// CreateChallenge opens a contest over [StartTime, EndTime] and moves the
// prize from the creator into custody at the challenge address.
func (e *Engine) CreateChallenge(s State, creator crypto.Address, p ChallengeParams) (*Challenge, crypto.Address, error) {
	if err := ValidateTitle(p.Title); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	if err := ValidateDescription(p.Description); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	if p.Prompt == "" {
		return nil, crypto.ZeroAddress, common.Validationf("meme: empty prompt")
	}
	if len(p.Prompt) > MaxPromptLength {
		return nil, crypto.ZeroAddress, common.Validationf("meme: prompt longer than %d bytes", MaxPromptLength)
	}
	if p.RewardAmount == 0 {
		return nil, crypto.ZeroAddress, common.Validationf("meme: reward must be positive")
	}
	if p.StartTime <= e.now() {
		return nil, crypto.ZeroAddress, common.Validationf("meme: start time must be in the future")
	}
	if p.EndTime <= p.StartTime {
		return nil, crypto.ZeroAddress, common.Validationf("meme: end time must be after start")
	}
	challengeAddr, _, err := address.Challenge(e.program, creator, p.StartTime)
	if err != nil {
		return nil, crypto.ZeroAddress, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(challengeAddr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, crypto.ZeroAddress, common.AlreadyExistsf("meme: challenge already exists for this creator and start")
		}
		return nil, crypto.ZeroAddress, err
	}
	c := &Challenge{
		Creator:      creator,
		Title:        p.Title,
		Description:  p.Description,
		Prompt:       p.Prompt,
		RewardAmount: p.RewardAmount,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
	}
	acc.Data = c.Marshal()
	if err := s.Put(challengeAddr, acc); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	if err := s.Transfer(creator, challengeAddr, p.RewardAmount); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	e.emit(NewChallengeEvent(challengeAddr, c))
	return c.Clone(), challengeAddr, nil
}

// SubmissionParams collects the fields of one contest entry.
type SubmissionParams struct {
	Title       string
	Description string
	ImageURL    string
}

// Submit enters the caller into the challenge. One entry per submitter;
// the derived (challenge, submitter) address enforces that.
func (e *Engine) Submit(s State, challengeAddr, submitter crypto.Address, p SubmissionParams) (*Submission, crypto.Address, error) {
	if err := ValidateTitle(p.Title); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	if err := ValidateDescription(p.Description); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	if p.ImageURL == "" {
		return nil, crypto.ZeroAddress, common.Validationf("meme: empty image url")
	}
	if len(p.ImageURL) > MaxImageURLLength {
		return nil, crypto.ZeroAddress, common.Validationf("meme: image url longer than %d bytes", MaxImageURLLength)
	}
	c, challengeAcc, err := e.loadChallenge(s, challengeAddr)
	if err != nil {
		return nil, crypto.ZeroAddress, err
	}
	now := e.now()
	if now < c.StartTime || now > c.EndTime {
		return nil, crypto.ZeroAddress, common.Preconditionf("meme: challenge is not accepting submissions")
	}
	if c.Decided() {
		return nil, crypto.ZeroAddress, common.Preconditionf("meme: challenge already decided")
	}
	subAddr, _, err := address.Submission(e.program, challengeAddr, submitter)
	if err != nil {
		return nil, crypto.ZeroAddress, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(subAddr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, crypto.ZeroAddress, common.AlreadyExistsf("meme: already submitted to this challenge")
		}
		return nil, crypto.ZeroAddress, err
	}
	sub := &Submission{
		Challenge:   challengeAddr,
		Submitter:   submitter,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		SubmittedAt: now,
	}
	acc.Data = sub.Marshal()
	if err := s.Put(subAddr, acc); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	c.SubmissionCount++
	if c.Leader.IsZero() {
		c.Leader = subAddr
		c.LeaderVotes = 0
		c.LeaderSubmittedAt = now
	}
	challengeAcc.Data = c.Marshal()
	if err := s.Put(challengeAddr, challengeAcc); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	e.emit(NewSubmittedEvent(challengeAddr, subAddr, sub))
	return sub.Clone(), subAddr, nil
}

// Vote casts the caller's single vote for one submission. Submitters cannot
// vote for themselves, and each (submission, voter) pair votes once ever.
func (e *Engine) Vote(s State, submissionAddr, voter crypto.Address) (*Submission, error) {
	subAcc, ok, err := s.Get(submissionAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("meme: no submission at %s", submissionAddr)
	}
	sub, err := DecodeSubmission(subAcc.Data)
	if err != nil {
		return nil, err
	}
	if voter == sub.Submitter {
		return nil, common.Preconditionf("meme: cannot vote for own submission")
	}
	c, challengeAcc, err := e.loadChallenge(s, sub.Challenge)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if now > c.EndTime {
		return nil, common.Preconditionf("meme: voting closed")
	}
	if c.Decided() {
		return nil, common.Preconditionf("meme: challenge already decided")
	}
	voteAddr, _, err := address.Vote(e.program, submissionAddr, voter)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	voteAcc, err := s.Create(voteAddr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.AlreadyExistsf("meme: already voted for this submission")
		}
		return nil, err
	}
	record := &VoteRecord{Submission: submissionAddr, Voter: voter, VotedAt: now}
	voteAcc.Data = record.Marshal()
	if err := s.Put(voteAddr, voteAcc); err != nil {
		return nil, err
	}
	sub.Votes++
	subAcc.Data = sub.Marshal()
	if err := s.Put(submissionAddr, subAcc); err != nil {
		return nil, err
	}
	c.TotalVotes++
	if leads(sub.Votes, sub.SubmittedAt, c) {
		c.Leader = submissionAddr
		c.LeaderVotes = sub.Votes
		c.LeaderSubmittedAt = sub.SubmittedAt
	}
	challengeAcc.Data = c.Marshal()
	if err := s.Put(sub.Challenge, challengeAcc); err != nil {
		return nil, err
	}
	e.emit(NewVotedEvent(sub.Challenge, submissionAddr, sub, voter))
	return sub.Clone(), nil
}

// leads reports whether a submission with the given tally now outranks the
// recorded leader. Ties go to the earlier submission.
func leads(votes uint32, submittedAt int64, c *Challenge) bool {
	if c.Leader.IsZero() {
		return true
	}
	if votes != c.LeaderVotes {
		return votes > c.LeaderVotes
	}
	return submittedAt < c.LeaderSubmittedAt
}

// EndChallenge settles the contest. Only the creator may end it, only after
// the window closes, only once, and only with the submission the vote tally
// actually ranks first. The prize moves from custody to the winning
// submitter.
func (e *Engine) EndChallenge(s State, challengeAddr, caller, winnerSubmission crypto.Address) (*Challenge, error) {
	c, challengeAcc, err := e.loadChallenge(s, challengeAddr)
	if err != nil {
		return nil, err
	}
	if caller != c.Creator {
		return nil, common.Preconditionf("meme: only the creator can end the challenge")
	}
	if e.now() <= c.EndTime {
		return nil, common.Preconditionf("meme: challenge still running")
	}
	if c.Decided() {
		return nil, common.Preconditionf("meme: winner already recorded")
	}
	if c.SubmissionCount == 0 {
		return nil, common.Preconditionf("meme: no submissions to rank")
	}
	if winnerSubmission != c.Leader {
		return nil, common.Preconditionf("meme: supplied winner is not the leading submission")
	}
	subAcc, ok, err := s.Get(winnerSubmission)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("meme: no submission at %s", winnerSubmission)
	}
	sub, err := DecodeSubmission(subAcc.Data)
	if err != nil {
		return nil, err
	}
	c.Winner = winnerSubmission
	challengeAcc.Data = c.Marshal()
	// The payout restages this same account; the record must be written
	// first or the staged debit is lost.
	if err := s.Put(challengeAddr, challengeAcc); err != nil {
		return nil, err
	}
	if err := s.Transfer(challengeAddr, sub.Submitter, c.RewardAmount); err != nil {
		return nil, err
	}
	e.emit(NewEndedEvent(challengeAddr, c, sub.Submitter))
	return c.Clone(), nil
}

// GetChallenge loads one challenge record by address.
func (e *Engine) GetChallenge(s State, challengeAddr crypto.Address) (*Challenge, error) {
	c, _, err := e.loadChallenge(s, challengeAddr)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// GetSubmission loads one submission by its (challenge, submitter) key.
func (e *Engine) GetSubmission(s State, challengeAddr, submitter crypto.Address) (*Submission, error) {
	subAddr, _, err := address.Submission(e.program, challengeAddr, submitter)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(subAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("meme: no submission by %s", submitter)
	}
	return DecodeSubmission(acc.Data)
}

func (e *Engine) loadChallenge(s State, challengeAddr crypto.Address) (*Challenge, *types.Account, error) {
	acc, ok, err := s.Get(challengeAddr)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, common.NotFoundf("meme: no challenge at %s", challengeAddr)
	}
	c, err := DecodeChallenge(acc.Data)
	if err != nil {
		return nil, nil, err
	}
	return c, acc, nil
}
