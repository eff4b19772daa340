package core

import (
	"commune/core/events"
	"commune/core/state"
	"commune/crypto"
	"commune/native/common"
	"commune/native/escrow"
	"commune/native/group"
	"commune/native/invite"
	"commune/native/meme"
	"commune/native/message"
	"commune/native/profile"
	"commune/storage"
)

// Config carries the identities a node needs before it can process
// operations. Program is the deriver namespace; RewardPool funds tutorial
// payouts.
type Config struct {
	Program    crypto.Address
	RewardPool crypto.Address
}

// Node is the central controller, wiring the account store and the native
// engines together. Every operation runs as one atomic batch.
type Node struct {
	cfg      Config
	manager  *state.Manager
	profiles *profile.Engine
	groups   *group.Engine
	messages *message.Engine
	invites  *invite.Engine
	escrows  *escrow.Engine
	memes    *meme.Engine
}

// NewNode wires a node over the given database.
func NewNode(db storage.Database, cfg Config) (*Node, error) {
	if cfg.Program.IsZero() {
		return nil, common.Validationf("node: program address is required")
	}
	groups := group.NewEngine(cfg.Program)
	profiles := profile.NewEngine(cfg.Program)
	profiles.SetRewardPool(cfg.RewardPool)
	n := &Node{
		cfg:      cfg,
		manager:  state.NewManager(db),
		profiles: profiles,
		groups:   groups,
		messages: message.NewEngine(cfg.Program, groups),
		invites:  invite.NewEngine(cfg.Program, groups),
		escrows:  escrow.NewEngine(cfg.Program),
		memes:    meme.NewEngine(cfg.Program),
	}
	return n, nil
}

// Program returns the deriver namespace the node addresses entities under.
func (n *Node) Program() crypto.Address { return n.cfg.Program }

// SetEmitter fans the emitter out to every engine. Passing nil silences
// them all.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.profiles.SetEmitter(emitter)
	n.groups.SetEmitter(emitter)
	n.messages.SetEmitter(emitter)
	n.invites.SetEmitter(emitter)
	n.escrows.SetEmitter(emitter)
	n.memes.SetEmitter(emitter)
}

// SetNowFunc fans a clock override out to every engine, for tests.
func (n *Node) SetNowFunc(now func() int64) {
	n.profiles.SetNowFunc(now)
	n.groups.SetNowFunc(now)
	n.messages.SetNowFunc(now)
	n.invites.SetNowFunc(now)
	n.escrows.SetNowFunc(now)
	n.memes.SetNowFunc(now)
}

// CreateProfile registers a profile for owner.
func (n *Node) CreateProfile(owner crypto.Address, username, bio string, showBalance bool) (*profile.Profile, error) {
	var out *profile.Profile
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.profiles.Create(b, owner, username, bio, showBalance)
		return err
	})
	return out, err
}

// UpdateProfile applies a partial profile update.
func (n *Node) UpdateProfile(owner crypto.Address, upd profile.Update) (*profile.Profile, error) {
	var out *profile.Profile
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.profiles.Update(b, owner, upd)
		return err
	})
	return out, err
}

// CompleteTutorial marks a tutorial done and pays the reward once.
func (n *Node) CompleteTutorial(owner crypto.Address, tutorialID uint8, reward uint64) (*profile.Profile, error) {
	var out *profile.Profile
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.profiles.CompleteTutorial(b, owner, tutorialID, reward)
		return err
	})
	return out, err
}

// SetProfileNFTPicture points the profile picture at an owned NFT.
func (n *Node) SetProfileNFTPicture(owner, nftRef crypto.Address) (*profile.Profile, error) {
	var out *profile.Profile
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.profiles.SetNFTPicture(b, owner, nftRef)
		return err
	})
	return out, err
}

// SetProfilePictureURL points the profile picture at an external URL.
func (n *Node) SetProfilePictureURL(owner crypto.Address, url string) (*profile.Profile, error) {
	var out *profile.Profile
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.profiles.SetPictureURL(b, owner, url)
		return err
	})
	return out, err
}

// GetProfile reads a profile without mutating anything.
func (n *Node) GetProfile(owner crypto.Address) (*profile.Profile, error) {
	var out *profile.Profile
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.profiles.Get(b, owner)
		return err
	})
	return out, err
}

// CreateGroup creates a group with the caller as first member and admin.
func (n *Node) CreateGroup(creator crypto.Address, params group.Params) (*group.Group, crypto.Address, error) {
	var (
		out  *group.Group
		addr crypto.Address
	)
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, addr, err = n.groups.Create(b, creator, params)
		return err
	})
	return out, addr, err
}

// JoinGroup admits member after the group's gating rules pass.
func (n *Node) JoinGroup(groupAddr, member crypto.Address, tokenProof *group.TokenProof, nftProof *group.NFTProof) (*group.Member, error) {
	var out *group.Member
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.groups.Join(b, groupAddr, member, tokenProof, nftProof)
		return err
	})
	return out, err
}

// MarkRead advances the member's read cursor, forward only.
func (n *Node) MarkRead(groupAddr, member crypto.Address, messageID uint64) (*group.Member, error) {
	var out *group.Member
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.groups.MarkRead(b, groupAddr, member, messageID)
		return err
	})
	return out, err
}

// GetGroup reads a group record.
func (n *Node) GetGroup(groupAddr crypto.Address) (*group.Group, error) {
	var out *group.Group
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.groups.Load(b, groupAddr)
		return err
	})
	return out, err
}

// GetMember reads a membership record.
func (n *Node) GetMember(groupAddr, member crypto.Address) (*group.Member, error) {
	var out *group.Member
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.groups.Membership(b, groupAddr, member)
		return err
	})
	return out, err
}

// SendMessage appends a message to a group's sequence.
func (n *Node) SendMessage(groupAddr, sender crypto.Address, messageID uint64, content string) (*message.Message, error) {
	var out *message.Message
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.messages.Send(b, groupAddr, sender, messageID, content)
		return err
	})
	return out, err
}

// TipMessage pays the message sender and bumps the tip accumulator.
func (n *Node) TipMessage(groupAddr crypto.Address, messageID uint64, tipper, recipient crypto.Address, amount uint64) (*message.Message, error) {
	var out *message.Message
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.messages.Tip(b, groupAddr, messageID, tipper, recipient, amount)
		return err
	})
	return out, err
}

// GetMessage reads one message by its (group, id) key.
func (n *Node) GetMessage(groupAddr crypto.Address, messageID uint64) (*message.Message, error) {
	var out *message.Message
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.messages.Get(b, groupAddr, messageID)
		return err
	})
	return out, err
}

// CreateInvite issues an invite for a group.
func (n *Node) CreateInvite(groupAddr, caller crypto.Address, code string, maxUses uint32, expiresAt int64) (*invite.Invite, error) {
	var out *invite.Invite
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.invites.Create(b, groupAddr, caller, code, maxUses, expiresAt)
		return err
	})
	return out, err
}

// UseInvite redeems an invite slot and joins the caller to the group. The
// group's gating rules are evaluated as on a direct join.
func (n *Node) UseInvite(groupAddr, caller crypto.Address, code string, tokenProof *group.TokenProof, nftProof *group.NFTProof) (*invite.Invite, error) {
	var out *invite.Invite
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.invites.Use(b, groupAddr, caller, code, tokenProof, nftProof)
		return err
	})
	return out, err
}

// GetInvite reads one invite by its (group, code) key.
func (n *Node) GetInvite(groupAddr crypto.Address, code string) (*invite.Invite, error) {
	var out *invite.Invite
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.invites.Get(b, groupAddr, code)
		return err
	})
	return out, err
}

// CreateEscrow opens a pending escrow with the initiator's leg in custody.
func (n *Node) CreateEscrow(initiator crypto.Address, params escrow.Params) (*escrow.Escrow, crypto.Address, error) {
	var (
		out  *escrow.Escrow
		addr crypto.Address
	)
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, addr, err = n.escrows.Create(b, initiator, params)
		return err
	})
	return out, addr, err
}

// AcceptEscrow locks in the counterparty's leg.
func (n *Node) AcceptEscrow(escrowAddr, caller crypto.Address) (*escrow.Escrow, error) {
	var out *escrow.Escrow
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.escrows.Accept(b, escrowAddr, caller)
		return err
	})
	return out, err
}

// CompleteEscrow settles an accepted escrow atomically.
func (n *Node) CompleteEscrow(escrowAddr, caller crypto.Address) (*escrow.Escrow, error) {
	var out *escrow.Escrow
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.escrows.Complete(b, escrowAddr, caller)
		return err
	})
	return out, err
}

// CancelEscrow refunds a pending escrow to its initiator.
func (n *Node) CancelEscrow(escrowAddr, caller crypto.Address) (*escrow.Escrow, error) {
	var out *escrow.Escrow
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.escrows.Cancel(b, escrowAddr, caller)
		return err
	})
	return out, err
}

// GetEscrow reads one escrow record.
func (n *Node) GetEscrow(escrowAddr crypto.Address) (*escrow.Escrow, error) {
	var out *escrow.Escrow
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.escrows.Get(b, escrowAddr)
		return err
	})
	return out, err
}

// CreateChallenge opens a meme contest with the prize in custody.
func (n *Node) CreateChallenge(creator crypto.Address, params meme.ChallengeParams) (*meme.Challenge, crypto.Address, error) {
	var (
		out  *meme.Challenge
		addr crypto.Address
	)
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, addr, err = n.memes.CreateChallenge(b, creator, params)
		return err
	})
	return out, addr, err
}

// SubmitMeme enters the caller into a challenge.
func (n *Node) SubmitMeme(challengeAddr, submitter crypto.Address, params meme.SubmissionParams) (*meme.Submission, crypto.Address, error) {
	var (
		out  *meme.Submission
		addr crypto.Address
	)
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, addr, err = n.memes.Submit(b, challengeAddr, submitter, params)
		return err
	})
	return out, addr, err
}

// VoteMeme counts one vote for a submission.
func (n *Node) VoteMeme(submissionAddr, voter crypto.Address) (*meme.Submission, error) {
	var out *meme.Submission
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.memes.Vote(b, submissionAddr, voter)
		return err
	})
	return out, err
}

// EndChallenge settles a contest and pays the prize to the winner.
func (n *Node) EndChallenge(challengeAddr, caller, winnerSubmission crypto.Address) (*meme.Challenge, error) {
	var out *meme.Challenge
	err := n.manager.Apply(func(b *state.Batch) error {
		var err error
		out, err = n.memes.EndChallenge(b, challengeAddr, caller, winnerSubmission)
		return err
	})
	return out, err
}

// GetChallenge reads one challenge record.
func (n *Node) GetChallenge(challengeAddr crypto.Address) (*meme.Challenge, error) {
	var out *meme.Challenge
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.memes.GetChallenge(b, challengeAddr)
		return err
	})
	return out, err
}

// GetSubmission reads one submission by its (challenge, submitter) key.
func (n *Node) GetSubmission(challengeAddr, submitter crypto.Address) (*meme.Submission, error) {
	var out *meme.Submission
	err := n.manager.View(func(b *state.Batch) error {
		var err error
		out, err = n.memes.GetSubmission(b, challengeAddr, submitter)
		return err
	})
	return out, err
}

// GetBalance reads an account's native balance. Unknown accounts report
// zero rather than an error.
func (n *Node) GetBalance(addr crypto.Address) (uint64, error) {
	var balance uint64
	err := n.manager.View(func(b *state.Batch) error {
		acc, ok, err := b.Get(addr)
		if err != nil {
			return err
		}
		if ok {
			balance = acc.Balance
		}
		return nil
	})
	return balance, err
}
